package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/detailflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestAuthorizer(t *testing.T) (Service, *gorm.DB, uuid.UUID) {
	t.Helper()
	db := testutil.OpenDB(t)
	orgID := testutil.SeedOrg(t, db, "Shine Bros", "shine-bros")

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	svc := NewService(Params{DB: db, Log: zap.NewNop(), Enforcer: enforcer})
	return svc, db, orgID
}

func seedKey(t *testing.T, db *gorm.DB, id int64, orgID uuid.UUID, keyID string, role string, active bool) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.Exec(
		`INSERT INTO api_keys (id, org_id, key_id, name, role, key_hash, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, orgID, keyID, keyID, role, "hash-"+keyID, active, now, now,
	).Error)
}

func TestAuthorizeByRole(t *testing.T) {
	svc, db, orgID := newTestAuthorizer(t)
	seedKey(t, db, 1, orgID, "viewer1", "viewer", true)
	seedKey(t, db, 2, orgID, "staff1", "staff", true)
	seedKey(t, db, 3, orgID, "owner1", "owner", true)

	ctx := context.Background()
	org := orgID.String()

	cases := []struct {
		actor  string
		object string
		action string
		err    error
	}{
		{"api_key:viewer1", ObjectJob, ActionJobView, nil},
		{"api_key:viewer1", ObjectJob, ActionJobUpdate, ErrForbidden},
		{"api_key:viewer1", ObjectSupply, ActionSupplyLog, ErrForbidden},
		{"api_key:staff1", ObjectJob, ActionJobAssess, nil},
		{"api_key:staff1", ObjectSupply, ActionSupplyLog, nil},
		{"api_key:staff1", ObjectSupply, ActionSupplyManage, ErrForbidden},
		{"api_key:staff1", ObjectAPIKey, ActionAPIKeyCreate, ErrForbidden},
		{"api_key:owner1", ObjectSupply, ActionSupplyManage, nil},
		{"api_key:owner1", ObjectAPIKey, ActionAPIKeyRevoke, nil},
		{ActorSystem, ObjectAPIKey, ActionAPIKeyCreate, nil},
	}
	for _, tc := range cases {
		err := svc.Authorize(ctx, tc.actor, org, tc.object, tc.action)
		if tc.err == nil {
			assert.NoError(t, err, "%s %s", tc.actor, tc.action)
		} else {
			assert.ErrorIs(t, err, tc.err, "%s %s", tc.actor, tc.action)
		}
	}
}

func TestAuthorizeRejectsInactiveAndForeignKeys(t *testing.T) {
	svc, db, orgID := newTestAuthorizer(t)
	otherOrg := testutil.SeedOrg(t, db, "Other", "other")
	seedKey(t, db, 1, orgID, "revoked", "owner", false)
	seedKey(t, db, 2, otherOrg, "foreign", "owner", true)

	ctx := context.Background()
	err := svc.Authorize(ctx, "api_key:revoked", orgID.String(), ObjectJob, ActionJobView)
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Authorize(ctx, "api_key:foreign", orgID.String(), ObjectJob, ActionJobView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeFollowsRoleChanges(t *testing.T) {
	svc, db, orgID := newTestAuthorizer(t)
	seedKey(t, db, 1, orgID, "k1", "viewer", true)
	ctx := context.Background()

	require.ErrorIs(t, svc.Authorize(ctx, "api_key:k1", orgID.String(), ObjectJob, ActionJobUpdate), ErrForbidden)

	require.NoError(t, db.Exec(`UPDATE api_keys SET role = 'staff' WHERE key_id = 'k1'`).Error)
	assert.NoError(t, svc.Authorize(ctx, "api_key:k1", orgID.String(), ObjectJob, ActionJobUpdate))
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc, _, orgID := newTestAuthorizer(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", orgID.String(), ObjectJob, ActionJobView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", orgID.String(), ObjectJob, ActionJobView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:", orgID.String(), ObjectJob, ActionJobView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, ActorSystem, "nope", ObjectJob, ActionJobView), ErrInvalidOrganization)
	assert.ErrorIs(t, svc.Authorize(ctx, ActorSystem, orgID.String(), "", ActionJobView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, ActorSystem, orgID.String(), ObjectJob, " "), ErrInvalidAction)
}

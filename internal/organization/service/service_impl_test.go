package service

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/detailflow/internal/organization/domain"
	"github.com/smallbiznis/detailflow/internal/organization/repository"
	"github.com/smallbiznis/detailflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	db := testutil.OpenDB(t)
	return NewService(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.NewRepository(db),
	})
}

func TestCreateGeneratesUniqueSlugs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.CreateOrganizationRequest{Name: "Acme Detail Co."})
	require.NoError(t, err)
	assert.Equal(t, "acme-detail-co", first.Slug)
	assert.Equal(t, domain.SubscriptionTrial, first.SubscriptionStatus)

	second, err := svc.Create(ctx, domain.CreateOrganizationRequest{Name: "Acme Detail Co"})
	require.NoError(t, err)
	assert.Equal(t, "acme-detail-co-2", second.Slug)

	got, err := svc.GetBySlug(ctx, "acme-detail-co-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID.String())
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateOrganizationRequest{Name: "   "})
	assert.True(t, errors.Is(err, domain.ErrInvalidName))

	_, err = svc.Create(ctx, domain.CreateOrganizationRequest{Name: "Shine", BusinessEmail: "not-an-email"})
	assert.True(t, errors.Is(err, domain.ErrInvalidEmail))
}

func TestGetBySlugNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetBySlug(context.Background(), "missing-org")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetBySlug(context.Background(), "Not A Slug")
	assert.ErrorIs(t, err, domain.ErrInvalidSlug)
}

package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectJob    = "job"
	ObjectSupply = "supply"
	ObjectAPIKey = "api_key"
)

const (
	ActionJobView   = "job.view"
	ActionJobUpdate = "job.update"
	ActionJobAssess = "job.assess"

	ActionSupplyView   = "supply.view"
	ActionSupplyLog    = "supply.log"
	ActionSupplyManage = "supply.manage"

	ActionAPIKeyView   = "api_key.view"
	ActionAPIKeyCreate = "api_key.create"
	ActionAPIKeyRevoke = "api_key.revoke"
)

// Actor prefixes accepted by Authorize.
const (
	ActorSystem       = "system"
	ActorAPIKeyPrefix = "api_key:"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if _, err := uuid.Parse(orgID); err != nil {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName, err := s.resolveRole(ctx, actor, orgID)
	if err != nil {
		s.logDenied(actor, orgID, object, action, err)
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(actor, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(actor, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.logDenied(actor, orgID, object, action, ErrForbidden)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveRole(ctx context.Context, actor string, orgID string) (string, error) {
	if actor == ActorSystem {
		return "role:owner", nil
	}
	if strings.HasPrefix(actor, ActorAPIKeyPrefix) {
		keyID := strings.TrimSpace(strings.TrimPrefix(actor, ActorAPIKeyPrefix))
		if keyID == "" {
			return "", ErrInvalidActor
		}
		role, err := s.roleForAPIKey(ctx, orgID, keyID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", ErrInvalidActor
}

func (s *ServiceImpl) roleForAPIKey(ctx context.Context, orgID string, keyID string) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM api_keys
		 WHERE org_id = ? AND key_id = ? AND is_active = ?
		 LIMIT 1`,
		orgID,
		keyID,
		true,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps exactly one role link per subject and domain.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) logDenied(actor string, orgID string, object string, action string, reason error) {
	s.log.Info("authorization denied",
		zap.String("actor", actor),
		zap.String("org_id", orgID),
		zap.String("object", object),
		zap.String("action", action),
		zap.Error(reason),
	)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Viewer permissions (read-only)
		{"role:viewer", ObjectJob, ActionJobView},
		{"role:viewer", ObjectSupply, ActionSupplyView},

		// Staff permissions
		{"role:staff", ObjectJob, ActionJobView},
		{"role:staff", ObjectJob, ActionJobUpdate},
		{"role:staff", ObjectJob, ActionJobAssess},
		{"role:staff", ObjectSupply, ActionSupplyView},
		{"role:staff", ObjectSupply, ActionSupplyLog},

		// Owner permissions
		{"role:owner", ObjectJob, ActionJobView},
		{"role:owner", ObjectJob, ActionJobUpdate},
		{"role:owner", ObjectJob, ActionJobAssess},
		{"role:owner", ObjectSupply, ActionSupplyView},
		{"role:owner", ObjectSupply, ActionSupplyLog},
		{"role:owner", ObjectSupply, ActionSupplyManage},
		{"role:owner", ObjectAPIKey, ActionAPIKeyView},
		{"role:owner", ObjectAPIKey, ActionAPIKeyCreate},
		{"role:owner", ObjectAPIKey, ActionAPIKeyRevoke},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/detailflow/internal/organization/domain"
	"github.com/smallbiznis/detailflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSlugAttempts = 50

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &service{
		db:   p.DB,
		log:  p.Log.Named("organization.service"),
		repo: p.Repo,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	base := slug.Make(name)
	if base == "" || !slug.IsSlug(base) {
		return nil, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.BusinessEmail)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, domain.ErrInvalidEmail
		}
	}

	now := time.Now().UTC()
	org := domain.Organization{
		ID:                 uuid.New(),
		Name:               name,
		BusinessEmail:      optional(email),
		Phone:              optional(req.Phone),
		Website:            optional(req.Website),
		City:               optional(req.City),
		State:              optional(req.State),
		SubscriptionStatus: domain.SubscriptionTrial,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		candidate, err := nextFreeSlug(ctx, repo, base)
		if err != nil {
			return err
		}
		org.Slug = candidate
		return repo.CreateOrganization(ctx, org)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("slug %q taken concurrently: %w", org.Slug, domain.ErrInvalidSlug)
		}
		return nil, err
	}

	s.log.Info("organization created", zap.String("org_id", org.ID.String()), zap.String("slug", org.Slug))

	return &domain.OrganizationResponse{
		ID:                 org.ID.String(),
		Name:               org.Name,
		Slug:               org.Slug,
		SubscriptionStatus: org.SubscriptionStatus,
	}, nil
}

func (s *service) GetBySlug(ctx context.Context, value string) (*domain.Organization, error) {
	value = strings.TrimSpace(value)
	if !slug.IsSlug(value) {
		return nil, domain.ErrInvalidSlug
	}
	org, err := s.repo.FindBySlug(ctx, value)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrNotFound
	}
	return org, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	orgID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidOrganization
	}
	org, err := s.repo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrNotFound
	}
	return org, nil
}

// nextFreeSlug returns base, or base-2, base-3, ... for the first unused value.
func nextFreeSlug(ctx context.Context, repo domain.Repository, base string) (string, error) {
	for i := 1; i <= maxSlugAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		exists, err := repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", domain.ErrSlugExhausted
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

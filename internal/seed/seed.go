package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	organizationdomain "github.com/smallbiznis/detailflow/internal/organization/domain"
	"gorm.io/gorm"
)

// EnsureOrganization makes sure an organization with the given slug exists, creating it when absent.
// It is used to bootstrap a demo tenant for local and self-hosted environments.
func EnsureOrganization(ctx context.Context, db *gorm.DB, orgSlug, name string) (organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	if db == nil {
		return org, errors.New("seed database handle is required")
	}

	orgSlug = strings.TrimSpace(orgSlug)
	if !slug.IsSlug(orgSlug) {
		return org, organizationdomain.ErrInvalidSlug
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = orgSlug
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("slug = ?", orgSlug).First(&org).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now().UTC()
		org = organizationdomain.Organization{
			ID:                 uuid.New(),
			Name:               name,
			Slug:               orgSlug,
			SubscriptionStatus: organizationdomain.SubscriptionTrial,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return tx.Create(&org).Error
	})
	return org, err
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	apikeydomain "github.com/smallbiznis/detailflow/internal/apikey/domain"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	apiKeyPrefix      = "dfk_live_"
	apiKeySecretBytes = 32
	// lastUsedResolution limits last_used_at writes to one per key per minute.
	lastUsedResolution = time.Minute
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  apikeydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  apikeydomain.Repository
	genID *snowflake.Node
}

func New(p Params) apikeydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		clock: p.Clock,
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) List(ctx context.Context) ([]apikeydomain.Response, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]apikeydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, s.toResponse(&items[i]))
	}

	return resp, nil
}

func (s *Service) Create(ctx context.Context, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apikeydomain.ErrInvalidName
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = apikeydomain.RoleStaff
	}
	if !apikeydomain.ValidRole(role) {
		return nil, apikeydomain.ErrInvalidRole
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	keyID := newKeyID(id)
	plain, hash, err := generateAPIKey(keyID)
	if err != nil {
		return nil, err
	}

	key := &apikeydomain.APIKey{
		ID:        id,
		OrgID:     orgID,
		KeyID:     keyID,
		Name:      name,
		Role:      role,
		KeyHash:   hash,
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		return nil, err
	}

	s.log.Info("api key created",
		zap.String("org_id", orgID.String()),
		zap.String("key_id", keyID),
		zap.String("role", role),
	)
	return &apikeydomain.SecretResponse{KeyID: key.KeyID, Role: role, APIKey: plain}, nil
}

func (s *Service) Revoke(ctx context.Context, keyID string) error {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return err
	}

	trimmed := strings.TrimSpace(keyID)
	if trimmed == "" {
		return apikeydomain.ErrInvalidKeyID
	}

	affected, err := s.repo.Deactivate(ctx, s.db, orgID, trimmed, s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return apikeydomain.ErrNotFound
	}
	return nil
}

func (s *Service) Authenticate(ctx context.Context, rawKey string) (*apikeydomain.Principal, error) {
	rawKey = strings.TrimSpace(rawKey)
	if !strings.HasPrefix(rawKey, apiKeyPrefix) {
		return nil, apikeydomain.ErrUnauthorized
	}

	key, err := s.repo.FindByHash(ctx, s.db, apikeydomain.HashAPIKey(rawKey))
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if key == nil || !key.IsActive || key.Expired(now) {
		return nil, apikeydomain.ErrUnauthorized
	}

	if key.LastUsedAt == nil || now.Sub(*key.LastUsedAt) >= lastUsedResolution {
		if err := s.repo.TouchLastUsed(ctx, s.db, int64(key.ID), now); err != nil {
			s.log.Warn("failed to record api key usage", zap.String("key_id", key.KeyID), zap.Error(err))
		}
	}

	return &apikeydomain.Principal{OrgID: key.OrgID, KeyID: key.KeyID, Role: key.Role}, nil
}

func (s *Service) orgIDFromContext(ctx context.Context) (uuid.UUID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return uuid.Nil, apikeydomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func (s *Service) toResponse(key *apikeydomain.APIKey) apikeydomain.Response {
	return apikeydomain.Response{
		KeyID:      key.KeyID,
		Name:       key.Name,
		Role:       key.Role,
		IsActive:   key.IsActive,
		CreatedAt:  key.CreatedAt,
		LastUsedAt: key.LastUsedAt,
		ExpiresAt:  key.ExpiresAt,
	}
}

func generateAPIKey(keyID string) (string, string, error) {
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}

	secretPart := hex.EncodeToString(secret)
	trimmed := strings.TrimPrefix(keyID, "key_")
	plain := fmt.Sprintf("%s%s_%s", apiKeyPrefix, trimmed, secretPart)
	return plain, apikeydomain.HashAPIKey(plain), nil
}

func newKeyID(id snowflake.ID) string {
	return "key_" + strings.ToUpper(strconv.FormatInt(int64(id), 36))
}

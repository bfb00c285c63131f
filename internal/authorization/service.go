package authorization

import (
	"context"
	"errors"
)

type Service interface {
	Authorize(ctx context.Context, actor string, orgID string, object string, action string) error
}

var (
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
)

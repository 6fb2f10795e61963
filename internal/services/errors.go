package services

import (
	"errors"

	"storybook-service/internal/repository"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = repository.ErrNotFound
	ErrConflict          = repository.ErrConflict
	ErrInviteExpired     = errors.New("invite has expired")
	ErrInviteInvalid     = errors.New("invite token is invalid")
	ErrNoAssets          = errors.New("order has no assets")
)

package firestore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
)

func TestOrderDocID(t *testing.T) {
	tests := []struct {
		name  string
		order models.Order
		want  string
	}{
		{"imported order keyed by woo id", models.Order{WooOrderID: 1234}, "woo-1234"},
		{"woo id wins over preset id", models.Order{ID: "abc", WooOrderID: 7}, "woo-7"},
		{"manual order keeps preset id", models.Order{ID: "abc"}, "abc"},
		{"manual order without id", models.Order{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderDocID(&tt.order))
		})
	}
}

func TestMapErr(t *testing.T) {
	assert.ErrorIs(t, mapErr(status.Error(codes.AlreadyExists, "exists")), repository.ErrConflict)
	assert.ErrorIs(t, mapErr(status.Error(codes.NotFound, "missing")), repository.ErrNotFound)

	other := status.Error(codes.Unavailable, "down")
	assert.Equal(t, other, mapErr(other))
	assert.False(t, errors.Is(mapErr(other), repository.ErrNotFound))
}

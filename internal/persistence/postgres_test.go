package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/consult-service/internal/config"
)

func TestNewPostgresRequiresDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, pg)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")
}

func TestNewPostgresRejectsMalformedDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{DSN: "://not-a-dsn"}, zap.NewNop())
	assert.Error(t, err)
}

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	require.EqualError(t, (&Config{}).Validate(), "url is required")

	cfg := Config{URL: "postgres://localhost/chipchip"}
	require.NoError(t, cfg.Validate())
	require.NotNil(t, cfg.Logger)
	require.Positive(t, cfg.StatementTimeout)
	require.Positive(t, cfg.ConnectTimeout)
}

func TestOpen_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{URL: "postgres://%zz"})
	require.ErrorContains(t, err, "invalid postgres url")
}

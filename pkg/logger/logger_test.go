package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogger_FormatRFC3339Millis(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 6, 5, 14, 3, 9, 42_500_000, time.FixedZone("EAT", 3*60*60))
	require.Equal(t, "2024-06-05T11:03:09.042Z", FormatRFC3339Millis(ts))
}

func TestLogger_New(t *testing.T) {
	t.Parallel()

	t.Run("drops empty string attributes", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := New(&buf, false)
		log.Info("agent: request completed", "session_id", "abc", "sql", "")

		out := buf.String()
		require.Contains(t, out, "agent: request completed")
		require.Contains(t, out, "session_id")
		require.Contains(t, out, "abc")
		require.NotContains(t, out, "sql")
	})

	t.Run("debug only when verbose", func(t *testing.T) {
		t.Parallel()
		var quiet, loud bytes.Buffer
		New(&quiet, false).Debug("agent: generated sql")
		New(&loud, true).Debug("agent: generated sql")
		require.Empty(t, quiet.String())
		require.Contains(t, loud.String(), "agent: generated sql")
	})
}

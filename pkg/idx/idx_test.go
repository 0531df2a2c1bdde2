package idx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("generates unique sortable ids", func(t *testing.T) {
		a := New()
		b := New()
		require.NotEqual(t, a, b)
		require.Less(t, a.String(), b.String())
	})

	t.Run("embeds the current time", func(t *testing.T) {
		before := time.Now().UTC().Truncate(time.Millisecond)
		id := New()
		require.WithinDuration(t, before, id.Time(), time.Second)
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("round-trips a generated id", func(t *testing.T) {
		id := New()
		parsed, err := Parse(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})

	t.Run("rejects empty and malformed input", func(t *testing.T) {
		for _, s := range []string{"", "   ", "not-a-ulid", "0000"} {
			_, err := Parse(s)
			require.ErrorIs(t, err, ErrInvalid)
		}
	})
}

func TestNewAt(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	id := NewAt(at)
	require.Equal(t, at, id.Time())
	require.Equal(t, time.UTC, id.Time().Location())
}

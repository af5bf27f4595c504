package idx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/pkg/idx"
)

func TestNewAndParse(t *testing.T) {
	t.Parallel()

	id := idx.New()
	require.NotEmpty(t, id.String())
	require.False(t, id.IsZero())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	t.Run("empty string", func(t *testing.T) {
		_, err := idx.Parse("")
		require.ErrorIs(t, err, idx.ErrInvalid)
	})

	t.Run("whitespace only", func(t *testing.T) {
		_, err := idx.Parse("   ")
		require.ErrorIs(t, err, idx.ErrInvalid)
	})

	t.Run("not a ulid", func(t *testing.T) {
		_, err := idx.Parse("definitely-not-a-ulid")
		require.ErrorIs(t, err, idx.ErrInvalid)
	})
}

func TestOrdering(t *testing.T) {
	t.Parallel()

	a := idx.NewAt(time.Unix(1, 0).UTC())
	b := idx.NewAt(time.Unix(2, 0).UTC())

	// ULIDs sort lexicographically by creation time.
	require.Less(t, a.String(), b.String())
}

func TestUniqueness(t *testing.T) {
	t.Parallel()

	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[idx.ID]bool)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				id := idx.New()
				mu.Lock()
				require.False(t, seen[id], "duplicate id generated: %s", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, 8*perWorker)
}

func TestMustParse(t *testing.T) {
	t.Parallel()

	id := idx.MustParse("01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV")
	require.False(t, id.IsZero())

	require.Panics(t, func() {
		idx.MustParse("nope")
	})
}

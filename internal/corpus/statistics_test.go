package corpus

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldReturnsPriorCounts(t *testing.T) {
	t.Parallel()

	s := New()
	prior, ordinal := s.Fold([]string{"go", "crawler", "go"})
	require.Equal(t, 1, ordinal)
	assert.Equal(t, 0, prior.Documents)
	assert.Equal(t, map[string]int{"go": 0, "crawler": 0}, prior.Frequency)

	prior, ordinal = s.Fold([]string{"go", "anime"})
	require.Equal(t, 2, ordinal)
	assert.Equal(t, 1, prior.Documents)
	assert.Equal(t, 1, prior.Frequency["go"])
	assert.Equal(t, 0, prior.Frequency["anime"])

	assert.Equal(t, 2, s.Documents())
	assert.Equal(t, 3, s.Vocabulary())

	prior, _ = s.Fold([]string{"go", "crawler"})
	assert.Equal(t, 2, prior.Frequency["go"], "document frequency counts documents, not occurrences")
	assert.Equal(t, 1, prior.Frequency["crawler"])
}

func TestFoldEmptyDocumentStillCounts(t *testing.T) {
	t.Parallel()

	s := New()
	_, ordinal := s.Fold(nil)
	require.Equal(t, 1, ordinal)
	require.Equal(t, 1, s.Documents())
	require.Zero(t, s.Vocabulary())
}

func TestFoldConcurrentOrdinalsUnique(t *testing.T) {
	t.Parallel()

	s := New()
	const docs = 50
	seen := make(chan int, docs)
	var wg sync.WaitGroup
	for i := 0; i < docs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ordinal := s.Fold([]string{"shared", fmt.Sprintf("term-%d", i)})
			seen <- ordinal
		}(i)
	}
	wg.Wait()
	close(seen)

	ordinals := make(map[int]struct{}, docs)
	for o := range seen {
		ordinals[o] = struct{}{}
	}
	require.Len(t, ordinals, docs)
	prior, _ := s.Fold([]string{"shared"})
	require.Equal(t, docs, prior.Frequency["shared"])
}

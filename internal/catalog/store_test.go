package catalog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ConcurrentMergesKeepInvariants(t *testing.T) {
	s := NewStore(nil)

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, err := s.Merge(Story{
					ID: fmt.Sprintf("story-%d", i%4),
					Chapters: []Chapter{
						chapter(fmt.Sprintf("Chapter %d", i%5), "img"),
					},
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	require.Equal(t, 4, snap.Len())

	for _, story := range snap.Stories() {
		seen := map[string]bool{}
		for _, ch := range story.Chapters {
			assert.False(t, seen[ch.Name], "duplicate chapter %s in %s", ch.Name, story.ID)
			seen[ch.Name] = true
		}
	}

	st := s.Stats()
	assert.Equal(t, 16*20, st.Merges)
	assert.Equal(t, 4, st.Created)
}

func TestStore_Known(t *testing.T) {
	s := NewStore(mustNew(t, Story{ID: "a", Chapters: []Chapter{chapter("Chapter 1")}}))

	names, ok := s.Known("a")
	require.True(t, ok)
	assert.True(t, names["Chapter 1"])

	_, ok = s.Known("b")
	assert.False(t, ok)
}

func TestStore_SnapshotIsIndependent(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Merge(Story{ID: "a", Chapters: []Chapter{chapter("1")}})
	require.NoError(t, err)

	snap := s.Snapshot()

	_, err = s.Merge(Story{ID: "a", Chapters: []Chapter{chapter("2")}})
	require.NoError(t, err)
	_, err = s.Merge(Story{ID: "b", Chapters: []Chapter{}})
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Len())
	got, _ := snap.Get("a")
	assert.Len(t, got.Chapters, 1)
	assert.Equal(t, 2, s.Len())
}

func TestStore_InvalidMergeNotCounted(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Merge(Story{ID: "a"})
	require.Error(t, err)
	assert.Equal(t, StoreStats{}, s.Stats())
}

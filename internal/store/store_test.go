package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byom-labs/byom-chat/internal/model"
)

func msg(author, text string, ts int64) model.Message {
	return model.Message{Author: author, Role: model.RoleUser, Text: text, TS: ts}
}

func TestReadUnknownConversation(t *testing.T) {
	s := NewMemoryStore()

	got := s.Read("nope")

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEnsureIsIdempotent(t *testing.T) {
	s := NewMemoryStore()

	assert.Empty(t, s.Ensure("demo"))
	s.Append("demo", msg("alice", "hi", 1))

	got := s.Ensure("demo")
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Text)
}

func TestAppendPreservesInsertionOrder(t *testing.T) {
	s := NewMemoryStore()

	// Out-of-order timestamps must not be resorted.
	s.Append("demo", msg("alice", "first", 300))
	s.Append("demo", msg("bob", "second", 100))
	s.Append("demo", msg("alice", "third", 200))

	got := s.Read("demo")
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
	assert.Equal(t, "third", got[2].Text)
}

func TestAppendEvictsOldestBeyondLimit(t *testing.T) {
	s := NewMemoryStore()

	for i := 0; i < HistoryLimit+1; i++ {
		s.Append("demo", msg("alice", fmt.Sprintf("m%d", i), int64(i)))
	}

	got := s.Read("demo")
	require.Len(t, got, HistoryLimit)
	assert.Equal(t, "m1", got[0].Text, "first appended message should be evicted")
	assert.Equal(t, fmt.Sprintf("m%d", HistoryLimit), got[len(got)-1].Text)
}

func TestReadReturnsMinOfAppendedAndLimit(t *testing.T) {
	s := NewMemoryStore()

	for _, n := range []int{1, 50, HistoryLimit, HistoryLimit + 500} {
		id := fmt.Sprintf("conv-%d", n)
		for i := 0; i < n; i++ {
			s.Append(id, msg("alice", "x", int64(i)))
		}
		want := n
		if want > HistoryLimit {
			want = HistoryLimit
		}
		assert.Len(t, s.Read(id), want)
	}
}

func TestReadReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.Append("demo", msg("alice", "original", 1))

	got := s.Read("demo")
	got[0].Text = "mutated"

	assert.Equal(t, "original", s.Read("demo")[0].Text)
}

func TestConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Append("demo", msg(fmt.Sprintf("user-%d", n), "x", int64(j)))
				s.Read("demo")
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Read("demo"), 800)
}

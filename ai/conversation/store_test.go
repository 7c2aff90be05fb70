package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AppendAndHistory(t *testing.T) {
	s := NewStore(20)

	s.Append("sess-1", RoleUser, "苹果多少钱")
	s.Append("sess-1", RoleAssistant, "60元一斤")

	history := s.History("sess-1")
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "苹果多少钱", history[0].Text)
	assert.Equal(t, RoleAssistant, history[1].Role)
}

func TestStore_BoundedHistory(t *testing.T) {
	const limit = 10
	s := NewStore(limit)

	// Append limit+5 turns; exactly the last limit remain, oldest first.
	for i := 0; i < limit+5; i++ {
		s.Append("sess-1", RoleUser, fmt.Sprintf("msg-%d", i))
	}

	history := s.History("sess-1")
	require.Len(t, history, limit)
	assert.Equal(t, "msg-5", history[0].Text)
	assert.Equal(t, "msg-14", history[limit-1].Text)
}

func TestStore_SessionsAreIndependent(t *testing.T) {
	s := NewStore(20)

	s.Append("a", RoleUser, "hello")
	s.Append("b", RoleUser, "你好")

	assert.Len(t, s.History("a"), 1)
	assert.Len(t, s.History("b"), 1)
	assert.Nil(t, s.History("c"))
	assert.Equal(t, 2, s.Sessions())
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(20)

	s.Append("sess-1", RoleUser, "hello")
	assert.True(t, s.Clear("sess-1"))
	assert.Nil(t, s.History("sess-1"))
	assert.False(t, s.Clear("sess-1"))
}

func TestStore_HistoryReturnsCopy(t *testing.T) {
	s := NewStore(20)

	s.Append("sess-1", RoleUser, "original")
	history := s.History("sess-1")
	history[0].Text = "mutated"

	assert.Equal(t, "original", s.History("sess-1")[0].Text)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	const limit = 20
	s := NewStore(limit)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append("sess-1", RoleUser, fmt.Sprintf("msg-%d", i))
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.History("sess-1"), limit)
}

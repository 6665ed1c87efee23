package questsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFOOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	q, err := NewQueue(ctx, store, nil)
	require.NoError(t, err)

	a1 := q.Enqueue(ctx, KindQuestProgress, "q1", map[string]any{"progress": 10})
	a2 := q.Enqueue(ctx, KindCharacter, "c1", map[string]any{"level": 2})
	a3 := q.Enqueue(ctx, KindQuestProgress, "q1", map[string]any{"progress": 20})

	actions := q.List()
	require.Len(t, actions, 3)
	require.Equal(t, []string{a1.ID, a2.ID, a3.ID},
		[]string{actions[0].ID, actions[1].ID, actions[2].ID})
	require.Less(t, actions[0].Seq, actions[1].Seq)
	require.Less(t, actions[1].Seq, actions[2].Seq)
}

func TestQueueSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	q1, err := NewQueue(ctx, store, nil)
	require.NoError(t, err)
	first := q1.Enqueue(ctx, KindAchievement, "a1", map[string]any{"count": 3})
	q1.Enqueue(ctx, KindCharacter, "c1", map[string]any{"level": 5})

	// A fresh queue over the same store sees the same records in order.
	q2, err := NewQueue(ctx, store, nil)
	require.NoError(t, err)
	actions := q2.List()
	require.Len(t, actions, 2)
	require.Equal(t, first.ID, actions[0].ID)
	require.Equal(t, KindAchievement, actions[0].Kind)

	// The sequence counter resumes past the recovered records.
	next := q2.Enqueue(ctx, KindCharacter, "c1", map[string]any{"level": 6})
	require.Greater(t, next.Seq, actions[1].Seq)
}

func TestQueueRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	q, err := NewQueue(ctx, NewMemoryStore(), nil)
	require.NoError(t, err)

	a := q.Enqueue(ctx, KindCharacter, "c1", map[string]any{"level": 1})
	require.Equal(t, 1, q.Len())

	q.Remove(ctx, a.ID)
	require.Equal(t, 0, q.Len())

	// Removing an absent id is a no-op.
	q.Remove(ctx, a.ID)
	q.Remove(ctx, "never-existed")
	require.Equal(t, 0, q.Len())
}

func TestQueueClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	q, err := NewQueue(ctx, store, nil)
	require.NoError(t, err)

	q.Enqueue(ctx, KindCharacter, "c1", map[string]any{"level": 1})
	q.Enqueue(ctx, KindCharacter, "c2", map[string]any{"level": 1})
	q.Clear(ctx)
	require.Equal(t, 0, q.Len())

	// The cleared state is what a restart sees.
	q2, err := NewQueue(ctx, store, nil)
	require.NoError(t, err)
	require.Empty(t, q2.List())
}

func TestQueuePendingFor(t *testing.T) {
	ctx := context.Background()
	q, err := NewQueue(ctx, NewMemoryStore(), nil)
	require.NoError(t, err)

	q.Enqueue(ctx, KindQuestProgress, "q1", map[string]any{"progress": 10})
	q.Enqueue(ctx, KindQuestProgress, "q1", map[string]any{"progress": 20})
	q.Enqueue(ctx, KindQuestProgress, "q2", map[string]any{"progress": 5})

	require.Equal(t, 2, q.PendingFor(KindQuestProgress, "q1"))
	require.Equal(t, 1, q.PendingFor(KindQuestProgress, "q2"))
	require.Equal(t, 0, q.PendingFor(KindCharacter, "q1"))
}

// Persistence failures degrade durability, not the in-memory session.
func TestQueueEnqueueSurvivesStoreFailure(t *testing.T) {
	ctx := context.Background()
	q, err := NewQueue(ctx, &failingStore{}, nil)
	require.NoError(t, err)

	a := q.Enqueue(ctx, KindCharacter, "c1", map[string]any{"level": 1})
	require.NotEmpty(t, a.ID)
	require.Equal(t, 1, q.Len())
}

type failingStore struct{}

func (f *failingStore) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }
func (f *failingStore) Set(context.Context, string, []byte) error {
	return context.DeadlineExceeded
}
func (f *failingStore) Remove(context.Context, string) error { return context.DeadlineExceeded }

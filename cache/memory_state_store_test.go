package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/decagraff/twitch-developer-hub/errors"
)

func TestMemoryStateStore_ConsumeIsSingleUse(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	pending := &PendingAuthorization{
		OwnerID:         "owner-1",
		CredentialSetID: "cred-1",
		RedirectURI:     "https://example.com/cb",
		Scopes:          []string{"user:read:follows"},
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.Put(ctx, "state-1", pending))

	got, err := store.Consume(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, pending, got)

	// Second consume of the same state must fail.
	_, err = store.Consume(ctx, "state-1")
	assert.ErrorIs(t, err, serrors.ErrStateNotFound)
}

func TestMemoryStateStore_UnknownState(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	defer store.Close()

	_, err := store.Consume(context.Background(), "never-issued")
	assert.ErrorIs(t, err, serrors.ErrStateNotFound)
}

func TestMemoryStateStore_ExpiredState(t *testing.T) {
	store := NewMemoryStateStore(10 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "state-1", &PendingAuthorization{OwnerID: "owner-1"}))
	time.Sleep(50 * time.Millisecond)

	_, err := store.Consume(ctx, "state-1")
	assert.ErrorIs(t, err, serrors.ErrStateNotFound)
}

func TestMemoryStateStore_ConcurrentConsumeHasOneWinner(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "state-1", &PendingAuthorization{OwnerID: "owner-1"}))

	const callers = 16
	var wins atomic.Int32
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := store.Consume(ctx, "state-1"); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
}

func TestMemoryStateStore_StatesAreIndependent(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "state-a", &PendingAuthorization{OwnerID: "owner-a"}))
	require.NoError(t, store.Put(ctx, "state-b", &PendingAuthorization{OwnerID: "owner-b"}))

	got, err := store.Consume(ctx, "state-a")
	require.NoError(t, err)
	assert.Equal(t, "owner-a", got.OwnerID)

	got, err = store.Consume(ctx, "state-b")
	require.NoError(t, err)
	assert.Equal(t, "owner-b", got.OwnerID)
}

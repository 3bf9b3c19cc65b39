package objectstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_Exclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := newMemAPI()
	c := NewWithAPI(api, "bucket")

	a := NewLock(c, "locks/leader.json", time.Hour)
	b := NewLock(c, "locks/leader.json", time.Hour)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, a.Held())

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, b.Held())

	raw, exists := api.content("locks/leader.json")
	require.True(t, exists)
	var info LockInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &info))
	assert.Equal(t, a.Owner(), info.Owner)

	renewed, err := a.Renew(ctx)
	require.NoError(t, err)
	assert.True(t, renewed)

	require.NoError(t, a.Release(ctx))
	assert.False(t, a.Held())
	_, exists = api.content("locks/leader.json")
	assert.False(t, exists)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_TakeOverExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewWithAPI(newMemAPI(), "bucket")

	a := NewLock(c, "lock", time.Minute)
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	b := NewLock(c, "lock", time.Minute)
	b.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// the old holder notices on renew and must not delete b's lock
	renewed, err := a.Renew(ctx)
	require.NoError(t, err)
	assert.False(t, renewed)
	assert.False(t, a.Held())
	require.NoError(t, a.Release(ctx))

	renewed, err = b.Renew(ctx)
	require.NoError(t, err)
	assert.True(t, renewed)
}

func TestLock_RenewWithoutAcquire(t *testing.T) {
	t.Parallel()
	l := NewLock(NewWithAPI(newMemAPI(), "bucket"), "lock", time.Minute)
	ok, err := l.Renew(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, l.Release(context.Background()))
}

func TestLock_CorruptObjectIsExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := newMemAPI()
	c := NewWithAPI(api, "bucket")
	_, err := c.Put(ctx, "lock", jsonReader("not json"), "")
	require.NoError(t, err)

	ok, err := NewLock(c, "lock", time.Minute).Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

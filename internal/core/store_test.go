package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUsers(n int) []User {
	users := make([]User, n)
	for i := range users {
		users[i] = Reshape(rec(
			"name.firstName", fmt.Sprintf("user%d", i),
			"age", fmt.Sprint(i*10),
			"address.city", "NY",
			"contact.email", fmt.Sprintf("u%d@example.com", i),
		))
	}
	return users
}

func TestNewStore_BatchSizeBounds(t *testing.T) {
	assert.Equal(t, DefaultBatchSize, NewStore(newMemDB(), 0).BatchSize())
	assert.Equal(t, DefaultBatchSize, NewStore(newMemDB(), maxStoreBatch+1).BatchSize())
	assert.Equal(t, 50, NewStore(newMemDB(), 50).BatchSize())
}

func TestStore_SaveUsers(t *testing.T) {
	mem := newMemDB()
	store := NewStore(mem, 2)

	n, err := store.SaveUsers(context.Background(), sampleUsers(5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, mem.commits, "one transaction per batch")
	assert.Zero(t, mem.rollbacks)

	rows := mem.snapshot()
	require.Len(t, rows, 5)
	assert.Equal(t, "user0", rows[0].Name)
	assert.JSONEq(t, `{"city":"NY"}`, string(rows[0].Address))
	assert.JSONEq(t, `{"contact":{"email":"u0@example.com"}}`, string(rows[0].AdditionalInfo))
}

func TestStore_SaveUsers_FailedBatchRollsBack(t *testing.T) {
	mem := newMemDB()
	mem.failBatch = 2
	store := NewStore(mem, 2)

	n, err := store.SaveUsers(context.Background(), sampleUsers(5))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDatabase))
	assert.Contains(t, err.Error(), "batch starting at row 2")
	assert.Equal(t, "DB001", MapError(err).Code)

	assert.Equal(t, 2, n, "first batch stays committed")
	assert.Len(t, mem.snapshot(), 2, "no partial batch is persisted")
	assert.Equal(t, 1, mem.commits)
	assert.Equal(t, 1, mem.rollbacks)
}

func TestStore_SaveUsers_BeginFails(t *testing.T) {
	mem := newMemDB()
	mem.err = errors.New("dial tcp: connection refused")

	n, err := NewStore(mem, 10).SaveUsers(context.Background(), sampleUsers(3))
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "DB004", MapError(err).Code)
}

func TestStore_SaveUsers_Empty(t *testing.T) {
	mem := newMemDB()
	n, err := NewStore(mem, 10).SaveUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, mem.begins)
}

func TestStore_InsertAndList(t *testing.T) {
	mem := newMemDB()
	store := NewStore(mem, 10)
	ctx := context.Background()

	created, err := store.InsertUser(ctx, sampleUsers(1)[0])
	require.NoError(t, err)
	assert.EqualValues(t, 1, created.ID)

	_, err = store.SaveUsers(ctx, sampleUsers(3))
	require.NoError(t, err)

	total, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)

	page, err := store.ListUsers(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.EqualValues(t, 2, page[0].ID)

	email, ok := page[0].AdditionalInfo.lookup("contact", "email")
	assert.True(t, ok)
	assert.Equal(t, "u0@example.com", email)
	assert.Equal(t, Fields{{"city", "NY"}}, page[0].Address)
}

func TestStore_AgeCounts(t *testing.T) {
	mem := newMemDB()
	store := NewStore(mem, 10)
	ctx := context.Background()

	// ages 0, 10, 20, 30, 40, 50, 60
	_, err := store.SaveUsers(ctx, sampleUsers(7))
	require.NoError(t, err)

	counts, err := store.AgeCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, AgeCounts{Under20: 2, From20To40: 2, From40To60: 2, Over60: 1, Total: 7}, counts)
}

func TestStore_DeleteUsers(t *testing.T) {
	mem := newMemDB()
	store := NewStore(mem, 10)
	ctx := context.Background()

	_, err := store.SaveUsers(ctx, sampleUsers(3))
	require.NoError(t, err)

	n, err := store.DeleteUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Empty(t, mem.snapshot())
}

func TestFromRow_BadJSON(t *testing.T) {
	mem := newMemDB()
	mem.users = append(mem.users, dbUser(1, "x", 1, `not json`, `{}`))

	_, err := NewStore(mem, 10).ListUsers(context.Background(), 10, 0)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDatabase))
}

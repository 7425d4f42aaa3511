package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evdealer/backend/internal/domain"
	"evdealer/backend/internal/store"
)

func TestGetPutDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, ok, err := s.Get(ctx, "deposit:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "deposit:1", []byte(`{"id":"1"}`)))
	got, ok, err := s.Get(ctx, "deposit:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"1"}`, string(got))

	got[0] = 'x'
	again, _, _ := s.Get(ctx, "deposit:1")
	assert.Equal(t, byte('{'), again[0], "returned slices must not alias stored data")

	require.NoError(t, s.Delete(ctx, "deposit:1"))
	_, ok, err = s.Get(ctx, "deposit:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmptyKeyRejected(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Put(context.Background(), "", []byte("{}")), store.ErrEmptyKey)
}

func TestIndexHelpers(t *testing.T) {
	ctx := context.Background()
	s := New()

	ids, err := store.LoadIndex(ctx, s, "deposit-index")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.AppendIndex(ctx, s, "deposit-index", "a"))
	require.NoError(t, store.AppendIndex(ctx, s, "deposit-index", "b"))
	require.NoError(t, store.AppendIndex(ctx, s, "deposit-index", "a"))
	ids, err = store.LoadIndex(ctx, s, "deposit-index")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, store.RemoveFromIndex(ctx, s, "deposit-index", "a"))
	ids, err = store.LoadIndex(ctx, s, "deposit-index")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestUsersRoundTripKeepsPasswordHash(t *testing.T) {
	ctx := context.Background()
	users := store.NewUsers(New())

	require.NoError(t, users.CreateUser(ctx, domain.UserAccount{
		Username: "Rina",
		Password: "$2a$10$hash",
		Role:     domain.RoleDealerStaff,
		Active:   true,
	}))
	err := users.CreateUser(ctx, domain.UserAccount{Username: "rina", Password: "x", Role: domain.RoleDealerStaff})
	assert.ErrorIs(t, err, store.ErrUserExists)

	list, err := users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "$2a$10$hash", list[0].Password)
	assert.Equal(t, domain.RoleDealerStaff, list[0].Role)

	require.NoError(t, users.UpdateUserPassword(ctx, "rina", "$2a$10$other"))
	list, err = users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$other", list[0].Password)
}

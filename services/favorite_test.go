package services

import (
	"OnlineStore/apperr"
	"OnlineStore/storetest"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavorites(t *testing.T) {
	db := storetest.OpenDB(t)
	svc := NewFavoriteService(db)
	ctx := context.Background()

	alice := storetest.CreateUser(t, db, "alice", false)
	bob := storetest.CreateUser(t, db, "bob", false)
	laptop := storetest.CreateProduct(t, db, "Laptop", "5999.99", 5)
	phone := storetest.CreateProduct(t, db, "Phone", "2999.99", 5)
	as := callerOf(alice.ID)

	ok, err := svc.Check(ctx, alice.ID, laptop.ID, as)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Add(ctx, alice.ID, laptop.ID, as))
	require.NoError(t, svc.Add(ctx, alice.ID, phone.ID, as))
	requireKind(t, svc.Add(ctx, alice.ID, laptop.ID, as), apperr.KindConflict)
	requireKind(t, svc.Add(ctx, alice.ID, 404, as), apperr.KindNotFound)
	requireKind(t, svc.Add(ctx, alice.ID, laptop.ID, callerOf(bob.ID)), apperr.KindForbidden)

	ok, err = svc.Check(ctx, alice.ID, laptop.ID, as)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := svc.Count(ctx, alice.ID, as)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	products, err := svc.List(ctx, alice.ID, as)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	require.NoError(t, svc.Remove(ctx, alice.ID, laptop.ID, as))
	requireKind(t, svc.Remove(ctx, alice.ID, laptop.ID, as), apperr.KindNotFound)

	_, err = svc.ListAll(ctx, Page{Limit: 10}, as)
	requireKind(t, err, apperr.KindForbidden)

	all, err := svc.ListAll(ctx, Page{Limit: 10}, admin)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Phone", all[0].Product.Name)

	mine, err := svc.ListForUser(ctx, alice.ID, admin)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

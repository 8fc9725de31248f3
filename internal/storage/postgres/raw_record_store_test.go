package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/internal/domain"
	"agrimarket/internal/storage"
)

func TestRawRecordStore_InsertAndFetchSample(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRawRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, domain.RawRecord{
		"commodity": domain.String("Onion"),
		"price":     domain.Number(30),
	}))
	require.NoError(t, store.InsertBulk(ctx, []domain.RawRecord{
		{"commodity": domain.String("Tomato"), "price": domain.String("₹20"), "organic": domain.Bool(true)},
		{"commodity": domain.String("Potato"), "demand": domain.Number(120), "grade": domain.Null()},
	}))

	all, err := store.FetchSample(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Onion", all[0]["commodity"].Text())
	assert.Equal(t, 30.0, all[0]["price"].Num)
	assert.Equal(t, domain.KindString, all[1]["price"].Kind)
	assert.True(t, all[1]["organic"].Truthy())
	assert.True(t, all[2]["grade"].IsNull())

	// Limit keeps the most recent records, oldest first
	recent, err := store.FetchSample(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Tomato", recent[0]["commodity"].Text())
	assert.Equal(t, "Potato", recent[1]["commodity"].Text())
}

func TestRawRecordStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRawRecordStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, domain.RawRecord{}), storage.ErrInvalidInput)

	_, err := store.FetchSample(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

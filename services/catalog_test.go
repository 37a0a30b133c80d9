package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saborlimeno/gorest/store"
)

func TestSeedMenu(t *testing.T) {
	c := NewCatalog(store.NewMemory())
	ctx := context.Background()

	n, err := c.SeedMenu(ctx)
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	n, err = c.SeedMenu(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := c.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 13)
	assert.Equal(t, "Ceviche Clásico", all[0].Name)
	assert.Equal(t, int64(10990), all[0].Price)

	available, err := c.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 10)
}

func TestCatalog_CreateUpdateAvailability(t *testing.T) {
	c := NewCatalog(store.NewMemory())
	ctx := context.Background()

	_, err := c.Create(ctx, DishInput{Name: "Papa a la Huancaína"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)

	d, err := c.Create(ctx, DishInput{Name: " Papa a la Huancaína ", Price: 7490, Category: "entradas"})
	require.NoError(t, err)
	assert.Equal(t, "Papa a la Huancaína", d.Name)
	assert.True(t, d.Available)

	d, err = c.SetAvailability(ctx, d.ID, false)
	require.NoError(t, err)
	assert.False(t, d.Available)

	available, _ := c.ListAvailable(ctx)
	assert.Empty(t, available)

	d, err = c.Update(ctx, d.ID, DishInput{Name: "Papa a la Huancaína", Price: 7990})
	require.NoError(t, err)
	assert.Equal(t, int64(7990), d.Price)
	assert.False(t, d.Available)

	_, err = c.Get(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.SetAvailability(ctx, 404, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

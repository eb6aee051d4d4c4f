package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItems_CRUD(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	g := mustGroup(t, s, db, "chemists", "")
	it := &Item{
		Name:      "Acetone",
		CASNumber: "67-64-1",
		Formula:   "C3H6O",
		Quantity:  decimal.RequireFromString("2.500"),
		Unit:      "L",
		Location:  "Cabinet F2",
		Hazard:    HazardFlammable,
		GroupID:   &g.ID,
	}
	require.NoError(t, s.CreateItem(ctx, db, it))
	require.NotZero(t, it.ID)

	got, err := s.GetItem(ctx, db, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acetone", got.Name)
	assert.True(t, decimal.RequireFromString("2.5").Equal(got.Quantity))
	assert.Equal(t, HazardFlammable, got.Hazard)
	require.NotNil(t, got.GroupID)
	assert.Equal(t, g.ID, *got.GroupID)

	got.Quantity = got.Quantity.Sub(decimal.RequireFromString("0.75"))
	got.Location = "Cabinet F3"
	require.NoError(t, s.UpdateItem(ctx, db, got))

	again, err := s.GetItem(ctx, db, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.75", again.Quantity.String())
	assert.Equal(t, "Cabinet F3", again.Location)

	_, err = s.GetItem(ctx, db, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListItems_Filters(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	g := mustGroup(t, s, db, "chemists", "")
	for _, it := range []*Item{
		{Name: "Ethanol", Hazard: HazardFlammable, GroupID: &g.ID},
		{Name: "Sodium hydroxide", Hazard: HazardCorrosive},
		{Name: "Methanol", Hazard: HazardFlammable},
		{Name: "Water"},
	} {
		require.NoError(t, s.CreateItem(ctx, db, it))
	}

	flammable, err := s.ListItems(ctx, db, ItemFilter{Hazard: HazardFlammable})
	require.NoError(t, err)
	require.Len(t, flammable, 2)
	assert.Equal(t, "Ethanol", flammable[0].Name)
	assert.Equal(t, "Methanol", flammable[1].Name)

	owned, err := s.ListItems(ctx, db, ItemFilter{GroupName: "chemists"})
	require.NoError(t, err)
	require.Len(t, owned, 1)

	n, err := s.CountItems(ctx, db, ItemFilter{Name: "anol"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	water, err := s.ListItems(ctx, db, ItemFilter{Hazard: HazardNone})
	require.NoError(t, err)
	require.Len(t, water, 1)
	assert.Equal(t, "Water", water[0].Name)
}

func TestValidateCASNumber(t *testing.T) {
	for _, ok := range []string{"7732-18-5", "67-64-1", "64-17-5", "1310-73-2", "7647-14-5"} {
		assert.NoError(t, ValidateCASNumber(ok), ok)
	}
	for _, bad := range []string{"7732-18-4", "7732185", "1-18-5", "abc-de-f", ""} {
		assert.Error(t, ValidateCASNumber(bad), bad)
	}
}

func TestParseHazardClass(t *testing.T) {
	h, err := ParseHazardClass("Corrosive")
	require.NoError(t, err)
	assert.Equal(t, HazardCorrosive, h)

	h, err = ParseHazardClass("")
	require.NoError(t, err)
	assert.Equal(t, HazardNone, h)

	_, err = ParseHazardClass("spicy")
	assert.Error(t, err)
}

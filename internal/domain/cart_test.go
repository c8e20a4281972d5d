package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(maxStock int) VariantRef {
	return VariantRef{
		ProductID: uuid.New(),
		VariantID: uuid.New(),
		UnitPrice: 250,
		MaxStock:  maxStock,
		Title:     "Salmon Kibble",
		SizeName:  "L",
	}
}

func TestCartAdd(t *testing.T) {
	c := NewCart(nil)
	r := ref(5)

	require.NoError(t, c.Add(r, 2))
	require.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Lines()[0].Quantity)

	t.Run("merges on same key and clamps to stock", func(t *testing.T) {
		require.NoError(t, c.Add(r, 10))
		require.Equal(t, 1, c.Len())
		assert.Equal(t, 5, c.Lines()[0].Quantity)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		assert.ErrorIs(t, c.Add(r, 0), ErrInvalidQuantity)
		assert.ErrorIs(t, c.Add(r, -3), ErrInvalidQuantity)
	})

	t.Run("rejects variant with zero stock", func(t *testing.T) {
		var ins *InsufficientStockError
		err := c.Add(ref(0), 1)
		require.ErrorAs(t, err, &ins)
		assert.Equal(t, 0, ins.Available)
	})
}

func TestCartSetQuantity(t *testing.T) {
	c := NewCart(nil)
	r := ref(4)
	require.NoError(t, c.Add(r, 2))
	key := c.Lines()[0].Key()

	require.NoError(t, c.SetQuantity(key, 3))
	assert.Equal(t, 3, c.Lines()[0].Quantity)

	t.Run("clamps above stock", func(t *testing.T) {
		require.NoError(t, c.SetQuantity(key, 99))
		assert.Equal(t, 4, c.Lines()[0].Quantity)
	})

	t.Run("floors below one instead of removing", func(t *testing.T) {
		require.NoError(t, c.SetQuantity(key, 0))
		require.Equal(t, 1, c.Len())
		assert.Equal(t, 1, c.Lines()[0].Quantity)
	})

	t.Run("unknown key", func(t *testing.T) {
		err := c.SetQuantity(CartKey{ProductID: uuid.New(), VariantID: uuid.New()}, 2)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCartChangeVariant(t *testing.T) {
	t.Run("re-keys the line", func(t *testing.T) {
		c := NewCart(nil)
		oldRef := ref(5)
		require.NoError(t, c.Add(oldRef, 3))
		oldKey := c.Lines()[0].Key()

		newRef := oldRef
		newRef.VariantID = uuid.New()
		newRef.SizeName = "XL"
		newRef.MaxStock = 10

		require.NoError(t, c.ChangeVariant(oldKey, newRef, 0))
		require.Equal(t, 1, c.Len())
		got := c.Lines()[0]
		assert.Equal(t, newRef.VariantID, got.VariantID)
		assert.Equal(t, "XL", got.SizeName)
		assert.Equal(t, 3, got.Quantity)
	})

	t.Run("merges into existing target line and re-clamps", func(t *testing.T) {
		c := NewCart(nil)
		a := ref(5)
		b := a
		b.VariantID = uuid.New()
		b.MaxStock = 4
		require.NoError(t, c.Add(a, 3))
		require.NoError(t, c.Add(b, 2))

		require.NoError(t, c.ChangeVariant(CartKey{ProductID: a.ProductID, VariantID: a.VariantID}, b, 3))
		require.Equal(t, 1, c.Len())
		got := c.Lines()[0]
		assert.Equal(t, b.VariantID, got.VariantID)
		assert.Equal(t, 4, got.Quantity) // 2 + 3 clamped to stock 4
	})

	t.Run("rejects target with zero stock, old line untouched", func(t *testing.T) {
		c := NewCart(nil)
		a := ref(5)
		require.NoError(t, c.Add(a, 2))
		empty := ref(0)

		var ins *InsufficientStockError
		err := c.ChangeVariant(c.Lines()[0].Key(), empty, 2)
		require.ErrorAs(t, err, &ins)
		require.Equal(t, 1, c.Len())
		assert.Equal(t, a.VariantID, c.Lines()[0].VariantID)
		assert.Equal(t, 2, c.Lines()[0].Quantity)
	})
}

func TestCartRemoveAndTotals(t *testing.T) {
	c := NewCart(nil)
	a := ref(10)
	b := ref(10)
	b.UnitPrice = 100
	require.NoError(t, c.Add(a, 2)) // 2 * 250
	require.NoError(t, c.Add(b, 3)) // 3 * 100

	assert.Equal(t, 5, c.TotalCount())
	assert.InDelta(t, 800.0, c.TotalPrice(), 1e-9)

	c.Remove(c.Lines()[0].Key())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.TotalCount())
	assert.InDelta(t, 300.0, c.TotalPrice(), 1e-9)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.TotalCount())
}

func TestNewCartReclamps(t *testing.T) {
	lines := []CartLine{
		{ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 9, MaxStock: 4},
		{ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 0, MaxStock: 4},
		{ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 2, MaxStock: 0},
	}
	c := NewCart(lines)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, 4, c.Lines()[0].Quantity)
	// unknown ceiling stays advisory: the quantity survives until checkout
	assert.Equal(t, 2, c.Lines()[1].Quantity)
}

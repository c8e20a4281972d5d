package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := &Notifier{Store: f.store, Catalog: f.catalog}

	_, v := f.seedProduct(t, "Salmon Kibble", 250, 4)
	placeOrder(t, f, uuid.New(), map[uuid.UUID]int{v.ID: 2}) // leaves 2, under the default threshold 5

	n.Poll(ctx)
	snap := n.Snapshot()
	assert.Equal(t, int64(1), snap.PendingOrders)
	require.Len(t, snap.LowStock, 1)
	assert.Equal(t, v.ID, snap.LowStock[0].ID)
	assert.False(t, snap.RefreshedAt.IsZero())
}

func TestNotifierSubscribeSignalsChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := &Notifier{Store: f.store, Catalog: f.catalog}
	ch := n.Subscribe()

	_, v := f.seedProduct(t, "Salmon Kibble", 250, 100)
	placeOrder(t, f, uuid.New(), map[uuid.UUID]int{v.ID: 1})

	n.Poll(ctx)
	select {
	case snap := <-ch:
		assert.Equal(t, int64(1), snap.PendingOrders)
	case <-time.After(time.Second):
		t.Fatal("expected a change signal")
	}

	// nothing moved: the poll must stay silent
	n.Poll(ctx)
	select {
	case <-ch:
		t.Fatal("unchanged snapshot must not signal")
	default:
	}
}

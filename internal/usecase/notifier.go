package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pattadon/petshop/internal/domain"
)

// AdminAlerts is the snapshot served to the admin dashboard: how many
// orders await acceptance and which variants sit at or under their
// low-stock threshold.
type AdminAlerts struct {
	PendingOrders int64            `json:"pending_orders"`
	LowStock      []domain.Variant `json:"low_stock"`
	RefreshedAt   time.Time        `json:"refreshed_at"`
}

// Notifier polls the store on an interval and keeps the latest snapshot in
// memory; the HTTP handler reads the copy, so a slow poll never blocks a
// request. In-process listeners can subscribe for change signals instead
// of reloading anything.
type Notifier struct {
	Store    domain.Store
	Catalog  *CatalogUC
	Interval time.Duration

	mu   sync.RWMutex
	snap AdminAlerts
	subs []chan AdminAlerts
}

func (n *Notifier) Start(ctx context.Context) {
	interval := n.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.Poll(ctx)
			}
		}
	}()
}

// Poll refreshes the snapshot once and notifies subscribers when the
// pending-order count moved.
func (n *Notifier) Poll(ctx context.Context) {
	pending, err := n.Store.Orders().CountByStatus(ctx, domain.OrderStatusPlaced)
	if err != nil {
		log.Error().Err(err).Msg("notifier: counting placed orders")
		return
	}
	low, err := n.Catalog.ListLowStock(ctx)
	if err != nil {
		log.Error().Err(err).Msg("notifier: listing low stock")
		return
	}
	snap := AdminAlerts{PendingOrders: pending, LowStock: low, RefreshedAt: time.Now()}

	n.mu.Lock()
	changed := snap.PendingOrders != n.snap.PendingOrders || len(snap.LowStock) != len(n.snap.LowStock)
	n.snap = snap
	subs := n.subs
	n.mu.Unlock()

	if !changed {
		return
	}
	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (n *Notifier) Snapshot() AdminAlerts {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.snap
}

// Subscribe returns a channel receiving snapshots whenever the alert
// counts change. Slow receivers miss updates rather than block the poller.
func (n *Notifier) Subscribe() <-chan AdminAlerts {
	ch := make(chan AdminAlerts, 1)
	n.mu.Lock()
	n.subs = append(n.subs, ch)
	n.mu.Unlock()
	return ch
}

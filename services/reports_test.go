package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saborlimeno/gorest/events"
	"saborlimeno/gorest/models"
)

func TestReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin", models.RoleAdmin, models.CategoryNew)
	vip := f.user(t, "rosa", models.RoleClient, models.CategoryVIP)
	f.user(t, "ana", models.RoleClient, models.CategoryNew)
	f.user(t, "luis", models.RoleClient, models.CategoryNew)

	f.order(t, vip) // 8792, pendiente
	ready := f.order(t, nil).ID
	_, _ = f.orders.MarkPreparing(ctx, ready)
	_, _ = f.orders.MarkReady(ctx, ready) // 10990, listo
	cancelled := f.order(t, nil).ID
	_, err := f.orders.Cancel(ctx, cancelled, admin)
	require.NoError(t, err)

	r := NewReports(f.st)

	sales, err := r.Sales(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SalesSummary{TotalSales: 8792 + 10990, OrderCount: 3}, sales)

	d, err := r.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8792+10990), d.TotalRevenue)
	assert.Equal(t, int64(3), d.OrderCount)
	assert.Equal(t, int64(1), d.ActiveOrders)
	assert.Equal(t, map[models.Category]int64{models.CategoryVIP: 1, models.CategoryNew: 2}, d.ClientsByCategory)
}

func TestNotifier(t *testing.T) {
	var n Notifier

	msg, err := n.Acknowledge(" Ana@Correo.pe")
	require.NoError(t, err)
	assert.Equal(t, "Notificación enviada a ana@correo.pe", msg)

	_, err = n.Acknowledge("")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	assert.Equal(t, "Tu pedido #4 va en camino con Carlos Rojas.",
		NotificationText(events.OrderEvent{Type: events.OrderStatusChanged, OrderID: 4, Status: "en_ruta", Driver: "Carlos Rojas"}))
	assert.Equal(t, "Tu pedido #4 fue anulado.", NotificationText(events.OrderEvent{Type: events.OrderCancelled, OrderID: 4}))
	assert.Empty(t, NotificationText(events.OrderEvent{Type: "unknown"}))

	assert.NoError(t, n.HandleEvent(context.Background(), events.OrderEvent{Type: events.PaymentRecorded, OrderID: 1}))
}

package services

import (
	"context"

	"go.opentelemetry.io/otel"

	"saborlimeno/gorest/models"
	"saborlimeno/gorest/store"
)

type ReportStore interface {
	store.Users
	store.Orders
}

// Reports computes admin figures straight from the store on every call.
type Reports struct {
	store ReportStore
}

func NewReports(st ReportStore) *Reports {
	return &Reports{store: st}
}

// Sales returns revenue over non-cancelled orders and the count of all orders.
func (r *Reports) Sales(ctx context.Context) (models.SalesSummary, error) {
	return r.store.SalesSummary(ctx)
}

func (r *Reports) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	ctx, span := otel.Tracer("reports").Start(ctx, "Dashboard")
	defer span.End()

	sales, err := r.store.SalesSummary(ctx)
	if err != nil {
		return nil, err
	}
	active, err := r.store.CountOrdersByStatus(ctx,
		models.StatusPending, models.StatusPreparing, models.StatusEnRoute)
	if err != nil {
		return nil, err
	}
	clients, err := r.store.CountClientsByCategory(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{
		TotalRevenue:      sales.TotalSales,
		OrderCount:        sales.OrderCount,
		ActiveOrders:      active,
		ClientsByCategory: clients,
	}, nil
}

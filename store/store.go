// Package store holds the persistence layer: typed repositories over the
// document store, an in-memory implementation and the session store.
package store

import (
	"context"
	"errors"

	"saborlimeno/gorest/models"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

// Counter names used with NextSequence.
const (
	SeqUsers    = "users"
	SeqDishes   = "dishes"
	SeqOrders   = "orders"
	SeqPayments = "payments"
	SeqReceipts = "receipts"
)

type Counters interface {
	// NextSequence atomically increments the named counter and returns the new value.
	NextSequence(ctx context.Context, name string) (int, error)
}

type Users interface {
	InsertUser(ctx context.Context, u *models.User) error
	FindUserByID(ctx context.Context, id int) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	CountClientsByCategory(ctx context.Context) (map[models.Category]int64, error)
}

type Dishes interface {
	InsertDish(ctx context.Context, d *models.Dish) error
	FindDish(ctx context.Context, id int) (*models.Dish, error)
	ListDishes(ctx context.Context, onlyAvailable bool) ([]models.Dish, error)
	UpdateDish(ctx context.Context, d *models.Dish) error
}

type Orders interface {
	InsertOrder(ctx context.Context, o *models.Order) error
	FindOrder(ctx context.Context, id int) (*models.Order, error)
	// ListOrders returns every order, newest first.
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListOrdersByUser(ctx context.Context, userID int) ([]models.Order, error)
	LatestOrderByUser(ctx context.Context, userID int) (*models.Order, error)
	ListOrdersByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]models.Order, error)
	// UpdateOrderStatus sets the status and, when driver is not empty, the driver.
	UpdateOrderStatus(ctx context.Context, id int, status models.OrderStatus, driver string) error
	SalesSummary(ctx context.Context) (models.SalesSummary, error)
	CountOrdersByStatus(ctx context.Context, statuses ...models.OrderStatus) (int64, error)
}

type Payments interface {
	InsertPayment(ctx context.Context, p *models.Payment) error
	ListPaymentsByOrder(ctx context.Context, orderID int) ([]models.Payment, error)
}

type Receipts interface {
	// InsertReceipt fails with ErrDuplicate when the order already has a receipt.
	InsertReceipt(ctx context.Context, r *models.Receipt) error
	FindReceipt(ctx context.Context, id int) (*models.Receipt, error)
	FindReceiptByOrder(ctx context.Context, orderID int) (*models.Receipt, error)
}

// Store is the full repository set.
type Store interface {
	Counters
	Users
	Dishes
	Orders
	Payments
	Receipts
}

// Sessions maps opaque bearer tokens to user ids.
type Sessions interface {
	Create(ctx context.Context, userID int) (string, error)
	Lookup(ctx context.Context, token string) (int, error)
	Delete(ctx context.Context, token string) error
}

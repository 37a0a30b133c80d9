package models

import (
	"errors"
	"math"
	"time"
)

// MaxLineQuantity is the largest quantity accepted for one cart line.
const MaxLineQuantity = 999

// ErrAmountOverflow is returned when order arithmetic does not fit in int64.
var ErrAmountOverflow = errors.New("order amount out of range")

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pendiente"
	StatusPreparing OrderStatus = "preparando"
	StatusReady     OrderStatus = "listo"
	StatusEnRoute   OrderStatus = "en_ruta"
	StatusDelivered OrderStatus = "entregado"
	StatusCancelled OrderStatus = "anulado"
)

var statusRank = map[OrderStatus]int{
	StatusPending:   0,
	StatusPreparing: 1,
	StatusReady:     2,
	StatusEnRoute:   3,
	StatusDelivered: 4,
}

// ParseOrderStatus maps a client supplied token to a status.
// "completado" is accepted as an alias of listo.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case StatusPending, StatusPreparing, StatusReady, StatusEnRoute, StatusDelivered, StatusCancelled:
		return st, true
	case "completado":
		return StatusReady, true
	}
	return "", false
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Rank orders the forward lifecycle. Cancelled has no rank and reports -1.
func (s OrderStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Active reports whether the order counts as in progress for dashboards.
func (s OrderStatus) Active() bool {
	return s == StatusPending || s == StatusPreparing || s == StatusEnRoute
}

// OrderItem is a frozen copy of a dish line taken when the order was placed.
type OrderItem struct {
	DishID    int    `json:"dishId" bson:"dishId"`
	Name      string `json:"name" bson:"name"`
	UnitPrice int64  `json:"price" bson:"unitPrice"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// LineTotal is unit price times quantity. ok is false when the product
// overflows or either factor is negative.
func (i OrderItem) LineTotal() (total int64, ok bool) {
	q := int64(i.Quantity)
	if i.UnitPrice < 0 || q < 0 {
		return 0, false
	}
	if q != 0 && i.UnitPrice > math.MaxInt64/q {
		return 0, false
	}
	return i.UnitPrice * q, true
}

type Order struct {
	ID              int         `json:"id" bson:"id"`
	UserID          *int        `json:"userId,omitempty" bson:"userId,omitempty"`
	Items           []OrderItem `json:"items" bson:"items"`
	Subtotal        int64       `json:"subtotal" bson:"subtotal"`
	Discount        int64       `json:"discount" bson:"discount"`
	PromoName       string      `json:"promoName,omitempty" bson:"promoName,omitempty"`
	Total           int64       `json:"total" bson:"total"`
	Status          OrderStatus `json:"status" bson:"status"`
	PaymentMethod   string      `json:"paymentMethod" bson:"paymentMethod"`
	DeliveryAddress string      `json:"deliveryAddress" bson:"deliveryAddress"`
	CreatedAt       time.Time   `json:"createdAt" bson:"createdAt"`
	Driver          string      `json:"repartidorNombre,omitempty" bson:"driver,omitempty"`
}

// Subtotal sums the line totals of items.
func Subtotal(items []OrderItem) (int64, error) {
	var total int64
	for _, item := range items {
		line, ok := item.LineTotal()
		if !ok || total > math.MaxInt64-line {
			return 0, ErrAmountOverflow
		}
		total += line
	}
	return total, nil
}

// CartLine is one requested dish in an order request.
type CartLine struct {
	DishID   int `json:"productId"`
	Quantity int `json:"quantity"`
}

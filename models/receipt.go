package models

import "time"

// Guest placeholders used when an order has no registered user.
const (
	GuestName  = "Invitado"
	GuestEmail = "sin-correo@saborlimeno.pe"
)

// Receipt is the immutable financial record written when an order is paid.
type Receipt struct {
	ID              int         `json:"id" bson:"id"`
	OrderID         int         `json:"orderId" bson:"orderId"`
	IssuedAt        time.Time   `json:"issuedAt" bson:"issuedAt"`
	ClientName      string      `json:"clientName" bson:"clientName"`
	ClientEmail     string      `json:"clientEmail" bson:"clientEmail"`
	DeliveryAddress string      `json:"deliveryAddress" bson:"deliveryAddress"`
	Items           []OrderItem `json:"items" bson:"items"`
	Subtotal        int64       `json:"subtotal" bson:"subtotal"`
	Discount        int64       `json:"discount" bson:"discount"`
	PromoName       string      `json:"promoName,omitempty" bson:"promoName,omitempty"`
	Total           int64       `json:"total" bson:"total"`
	PaymentMethod   string      `json:"paymentMethod" bson:"paymentMethod"`
}

// Payment is an append-only log entry.
type Payment struct {
	ID        int       `json:"id" bson:"id"`
	OrderID   int       `json:"order_id" bson:"order_id"`
	Method    string    `json:"metodo" bson:"metodo"`
	Amount    int64     `json:"monto" bson:"monto"`
	Confirmed bool      `json:"confirmado" bson:"confirmado"`
	ChargeID  string    `json:"charge_id,omitempty" bson:"charge_id,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

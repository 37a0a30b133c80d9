package models

import "time"

// OrderView is the client facing projection of an order. Before payment it
// is computed from the order; afterwards the money and client fields come
// from the receipt.
type OrderView struct {
	ID              int         `json:"id"`
	CreatedAt       time.Time   `json:"createdAt"`
	TotalAmount     int64       `json:"totalAmount"`
	OriginalAmount  int64       `json:"originalAmount"`
	Discount        int64       `json:"discount"`
	PromoName       string      `json:"promoName"`
	Status          OrderStatus `json:"status"`
	ClientName      string      `json:"clientName"`
	ClientEmail     string      `json:"clientEmail"`
	DeliveryAddress string      `json:"deliveryAddress"`
	PaymentMethod   string      `json:"paymentMethod"`
	Items           []OrderItem `json:"items"`
	Driver          string      `json:"repartidorNombre"`
	ReceiptID       int         `json:"receiptId,omitempty"`
	Paid            bool        `json:"paid"`
}

// SalesSummary backs the /ventas report.
type SalesSummary struct {
	TotalSales int64 `json:"total_ventas"`
	OrderCount int64 `json:"cantidad_pedidos"`
}

// Dashboard aggregates the admin dashboard figures.
type Dashboard struct {
	TotalRevenue      int64              `json:"totalRevenue"`
	OrderCount        int64              `json:"orderCount"`
	ActiveOrders      int64              `json:"activeOrders"`
	ClientsByCategory map[Category]int64 `json:"clientsByCategory"`
}

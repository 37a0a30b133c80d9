package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"saborlimeno/gorest/events"
	"saborlimeno/gorest/logging"
	"saborlimeno/gorest/models"
	"saborlimeno/gorest/store"
)

// Discount labels shown on orders and receipts.
const (
	PromoFrequent = "Cliente Frecuente (10%)"
	PromoVIP      = "Cliente VIP (20%)"
)

// LoyaltyDiscount returns the discount owed to a customer of the given
// category and the label describing it. The percentage is rounded down.
func LoyaltyDiscount(category models.Category, subtotal int64) (int64, string) {
	switch category {
	case models.CategoryFrequent:
		return percentOf(subtotal, 10), PromoFrequent
	case models.CategoryVIP:
		return percentOf(subtotal, 20), PromoVIP
	}
	return 0, ""
}

// percentOf is floor(amount*pct/100) for non-negative amounts, computed
// without overflowing.
func percentOf(amount, pct int64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount/100*pct + amount%100*pct/100
}

type OrderStore interface {
	store.Counters
	store.Users
	store.Dishes
	store.Orders
	store.Receipts
}

// ReadHook is given every order before it is returned to a reader and may
// advance it. The status simulator implements it.
type ReadHook interface {
	Advance(ctx context.Context, o *models.Order) (*models.Order, error)
}

// Orders is the order engine. All status changes go through its transition
// commands.
type Orders struct {
	store  OrderStore
	events events.Publisher
	hook   ReadHook
	now    func() time.Time
}

func NewOrders(st OrderStore, pub events.Publisher) *Orders {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Orders{store: st, events: pub, now: time.Now}
}

// SetReadHook installs h, or removes the current hook when h is nil.
func (s *Orders) SetReadHook(h ReadHook) {
	s.hook = h
}

type CreateOrderInput struct {
	Items           []models.CartLine `json:"items"`
	PaymentMethod   string            `json:"paymentMethod"`
	DeliveryAddress string            `json:"deliveryAddress"`
}

// Validate normalises the payment method, defaulting to cash, and bounds
// line quantities.
func (in *CreateOrderInput) Validate() error {
	in.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	if len(in.Items) == 0 {
		return ErrInvalidCart
	}
	for _, line := range in.Items {
		if line.Quantity > models.MaxLineQuantity {
			return invalid("quantity", fmt.Sprintf("must be at most %d", models.MaxLineQuantity))
		}
	}

	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		in.PaymentMethod = MethodCash
		return nil
	}
	normalized, ok := NormalizeMethod(method)
	if !ok {
		return invalid("paymentMethod", "must be efectivo, yape or tarjeta")
	}
	in.PaymentMethod = normalized
	return nil
}

// Create places an order for user, or for a guest when user is nil. Lines
// naming unknown or unavailable dishes, or with a non-positive quantity, are
// dropped; if nothing survives the cart is rejected.
func (s *Orders) Create(ctx context.Context, user *models.User, in CreateOrderInput) (*models.OrderView, error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "CreateOrder")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		if line.Quantity <= 0 {
			continue
		}
		dish, err := s.store.FindDish(ctx, line.DishID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("find dish %d: %w", line.DishID, err)
		}
		if !dish.Available {
			continue
		}
		items = append(items, models.OrderItem{
			DishID:    dish.ID,
			Name:      dish.Name,
			UnitPrice: dish.Price,
			Quantity:  line.Quantity,
		})
	}
	if len(items) == 0 {
		return nil, ErrInvalidCart
	}

	subtotal, err := models.Subtotal(items)
	if err != nil {
		return nil, invalid("items", "order total is out of range")
	}
	order := &models.Order{
		Items:           items,
		Subtotal:        subtotal,
		Status:          models.StatusPending,
		PaymentMethod:   in.PaymentMethod,
		DeliveryAddress: in.DeliveryAddress,
		CreatedAt:       s.now().UTC(),
	}
	customer := "guest"
	if user != nil {
		uid := user.ID
		order.UserID = &uid
		order.Discount, order.PromoName = LoyaltyDiscount(user.Category, order.Subtotal)
		customer = "registered"
	}
	order.Total = order.Subtotal - order.Discount

	id, err := s.store.NextSequence(ctx, store.SeqOrders)
	if err != nil {
		return nil, err
	}
	order.ID = id
	if err := s.store.InsertOrder(ctx, order); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert order: %w", err)
	}

	span.SetAttributes(attribute.Int("order.id", order.ID), attribute.Int64("order.total", order.Total))
	ordersCreated.WithLabelValues(customer).Inc()
	logging.FromContext(ctx).Info("order created", "order_id", order.ID, "total", order.Total, "items", len(items))

	evt := events.OrderEvent{Type: events.OrderCreated, OrderID: order.ID, UserID: order.UserID, Status: string(order.Status), Amount: order.Total}
	if user != nil {
		evt.ClientEmail = user.Email
	}
	s.publish(ctx, evt)

	return s.View(ctx, order)
}

// find loads an order without running the read hook.
func (s *Orders) find(ctx context.Context, id int) (*models.Order, error) {
	o, err := s.store.FindOrder(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order %d: %w", id, err)
	}
	return o, nil
}

func (s *Orders) read(ctx context.Context, o *models.Order) (*models.Order, error) {
	if s.hook == nil || o.Status.Terminal() {
		return o, nil
	}
	return s.hook.Advance(ctx, o)
}

// Get returns an order after giving the read hook a chance to advance it.
func (s *Orders) Get(ctx context.Context, id int) (*models.Order, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.read(ctx, o)
}

func (s *Orders) GetView(ctx context.Context, id int) (*models.OrderView, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.View(ctx, o)
}

// ListForUser returns the user's orders, newest first.
func (s *Orders) ListForUser(ctx context.Context, userID int) ([]models.OrderView, error) {
	orders, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, orders)
}

// Latest returns the user's most recent order.
func (s *Orders) Latest(ctx context.Context, userID int) (*models.OrderView, error) {
	o, err := s.store.LatestOrderByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if o, err = s.read(ctx, o); err != nil {
		return nil, err
	}
	return s.View(ctx, o)
}

// ListAll returns every order, newest first.
func (s *Orders) ListAll(ctx context.Context) ([]models.OrderView, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, orders)
}

// Open returns the orders that have not reached a terminal status.
func (s *Orders) Open(ctx context.Context) ([]models.Order, error) {
	return s.store.ListOrdersByStatus(ctx,
		models.StatusPending, models.StatusPreparing, models.StatusReady, models.StatusEnRoute)
}

func (s *Orders) views(ctx context.Context, orders []models.Order) ([]models.OrderView, error) {
	out := make([]models.OrderView, 0, len(orders))
	for i := range orders {
		o, err := s.read(ctx, &orders[i])
		if err != nil {
			return nil, err
		}
		v, err := s.View(ctx, o)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// View projects an order for clients. Once the order has a receipt the
// money and client fields come from the receipt; status and driver always
// come from the live order.
func (s *Orders) View(ctx context.Context, o *models.Order) (*models.OrderView, error) {
	v := &models.OrderView{
		ID:        o.ID,
		CreatedAt: o.CreatedAt,
		Status:    o.Status,
		Driver:    o.Driver,
	}

	receipt, err := s.store.FindReceiptByOrder(ctx, o.ID)
	switch {
	case err == nil:
		v.Paid = true
		v.ReceiptID = receipt.ID
		v.TotalAmount = receipt.Total
		v.OriginalAmount = receipt.Subtotal
		v.Discount = receipt.Discount
		v.PromoName = receipt.PromoName
		v.ClientName = receipt.ClientName
		v.ClientEmail = receipt.ClientEmail
		v.DeliveryAddress = receipt.DeliveryAddress
		v.PaymentMethod = receipt.PaymentMethod
		v.Items = receipt.Items
		return v, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("find receipt for order %d: %w", o.ID, err)
	}

	v.TotalAmount = o.Total
	v.OriginalAmount = o.Subtotal
	v.Discount = o.Discount
	v.PromoName = o.PromoName
	v.DeliveryAddress = o.DeliveryAddress
	v.PaymentMethod = o.PaymentMethod
	v.Items = o.Items
	v.ClientName, v.ClientEmail, err = s.client(ctx, o.UserID)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// client resolves the display name and email for an order's owner, falling
// back to the guest placeholders.
func (s *Orders) client(ctx context.Context, userID *int) (string, string, error) {
	if userID == nil {
		return models.GuestName, models.GuestEmail, nil
	}
	u, err := s.store.FindUserByID(ctx, *userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.GuestName, models.GuestEmail, nil
		}
		return "", "", fmt.Errorf("find user %d: %w", *userID, err)
	}
	return u.Name, u.Email, nil
}

// MarkPreparing moves a pending order into the kitchen.
func (s *Orders) MarkPreparing(ctx context.Context, id int) (*models.Order, error) {
	return s.transition(ctx, id, models.StatusPending, models.StatusPreparing, "")
}

// MarkReady marks a preparing order as ready for pickup.
func (s *Orders) MarkReady(ctx context.Context, id int) (*models.Order, error) {
	return s.transition(ctx, id, models.StatusPreparing, models.StatusReady, "")
}

// Dispatch hands a ready order to a driver. An order that already has a
// driver keeps it and driver is ignored.
func (s *Orders) Dispatch(ctx context.Context, id int, driver string) (*models.Order, error) {
	return s.transition(ctx, id, models.StatusReady, models.StatusEnRoute, strings.TrimSpace(driver))
}

// Deliver closes an order that is on its way.
func (s *Orders) Deliver(ctx context.Context, id int) (*models.Order, error) {
	return s.transition(ctx, id, models.StatusEnRoute, models.StatusDelivered, "")
}

// Cancel voids an order on behalf of requester, who must own it or be an
// admin. Orders already on the road, delivered, or paid cannot be cancelled;
// cancelling a cancelled order succeeds without change.
func (s *Orders) Cancel(ctx context.Context, id int, requester *models.User) (*models.Order, error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "CancelOrder", trace.WithAttributes(attribute.Int("order.id", id)))
	defer span.End()

	if requester == nil {
		return nil, ErrUnauthorized
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.IsAdmin() && (o.UserID == nil || *o.UserID != requester.ID) {
		return nil, ErrForbidden
	}

	switch o.Status {
	case models.StatusCancelled:
		return o, nil
	case models.StatusEnRoute, models.StatusDelivered:
		return nil, fmt.Errorf("%w: order %d is %s", ErrInvalidTransition, id, o.Status)
	}
	if _, err := s.store.FindReceiptByOrder(ctx, id); err == nil {
		return nil, fmt.Errorf("%w: order %d is already paid", ErrInvalidTransition, id)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if err := s.store.UpdateOrderStatus(ctx, id, models.StatusCancelled, ""); err != nil {
		return nil, fmt.Errorf("cancel order %d: %w", id, err)
	}
	o.Status = models.StatusCancelled
	statusTransitions.WithLabelValues(string(o.Status)).Inc()
	logging.FromContext(ctx).Info("order cancelled", "order_id", id, "by", requester.ID)
	s.publish(ctx, events.OrderEvent{Type: events.OrderCancelled, OrderID: id, UserID: o.UserID, Status: string(o.Status)})
	return o, nil
}

// ApplyStatus maps a requested target status onto the matching command.
func (s *Orders) ApplyStatus(ctx context.Context, id int, status models.OrderStatus, driver string, requester *models.User) (*models.Order, error) {
	switch status {
	case models.StatusPreparing:
		return s.MarkPreparing(ctx, id)
	case models.StatusReady:
		return s.MarkReady(ctx, id)
	case models.StatusEnRoute:
		return s.Dispatch(ctx, id, driver)
	case models.StatusDelivered:
		return s.Deliver(ctx, id)
	case models.StatusCancelled:
		return s.Cancel(ctx, id, requester)
	}
	return nil, fmt.Errorf("%w: cannot move an order to %q", ErrInvalidTransition, status)
}

func (s *Orders) transition(ctx context.Context, id int, from, to models.OrderStatus, driver string) (*models.Order, error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "Transition",
		trace.WithAttributes(attribute.Int("order.id", id), attribute.String("order.status", string(to))))
	defer span.End()

	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == to {
		return o, nil
	}
	if o.Status != from {
		return nil, fmt.Errorf("%w: order %d is %s, not %s", ErrInvalidTransition, id, o.Status, from)
	}

	if to == models.StatusEnRoute {
		if o.Driver != "" {
			driver = ""
		} else if driver == "" {
			return nil, invalid("repartidorNombre", "is required to dispatch an order")
		}
	}

	if err := s.store.UpdateOrderStatus(ctx, id, to, driver); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("update order %d: %w", id, err)
	}
	o.Status = to
	if driver != "" {
		o.Driver = driver
	}

	statusTransitions.WithLabelValues(string(to)).Inc()
	logging.FromContext(ctx).Info("order status changed", "order_id", id, "from", from, "to", to, "driver", o.Driver)
	s.publish(ctx, events.OrderEvent{
		Type:    events.OrderStatusChanged,
		OrderID: id,
		UserID:  o.UserID,
		Status:  string(to),
		Driver:  o.Driver,
	})
	return o, nil
}

// publish never fails the caller; a lost event is logged.
func (s *Orders) publish(ctx context.Context, evt events.OrderEvent) {
	if err := s.events.Publish(ctx, evt); err != nil {
		logging.FromContext(ctx).Warn("publish order event", "type", evt.Type, "order_id", evt.OrderID, "error", err)
	}
}

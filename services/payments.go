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

type PaymentStore interface {
	store.Counters
	store.Users
	store.Orders
	store.Payments
	store.Receipts
}

// Payments records payments and issues the receipt that freezes an order.
type Payments struct {
	store   PaymentStore
	gateway Gateway
	signer  *ReceiptSigner
	events  events.Publisher
	now     func() time.Time
}

func NewPayments(st PaymentStore, gw Gateway, signer *ReceiptSigner, pub events.Publisher) *Payments {
	if gw == nil {
		gw = OfflineGateway{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Payments{store: st, gateway: gw, signer: signer, events: pub, now: time.Now}
}

type PaymentInput struct {
	OrderID     int    `json:"order_id"`
	Method      string `json:"metodo"`
	Amount      int64  `json:"monto"`
	SourceToken string `json:"sourceToken,omitempty"`
}

func (in *PaymentInput) Validate() error {
	if in.OrderID <= 0 {
		return invalid("order_id", "is required")
	}
	method, ok := NormalizeMethod(strings.ToLower(strings.TrimSpace(in.Method)))
	if !ok {
		return invalid("metodo", "must be efectivo, yape or tarjeta")
	}
	in.Method = method
	if in.Amount < 0 {
		return invalid("monto", "must not be negative")
	}
	return nil
}

// Record settles a payment for an order and writes its receipt. An order can
// be paid once; a zero amount means the order total.
func (p *Payments) Record(ctx context.Context, in PaymentInput) (*models.Payment, *models.Receipt, error) {
	ctx, span := otel.Tracer("payments").Start(ctx, "RecordPayment")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, nil, err
	}
	span.SetAttributes(attribute.Int("order.id", in.OrderID), attribute.String("payment.method", in.Method))

	order, err := p.store.FindOrder(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("find order %d: %w", in.OrderID, err)
	}
	if order.Status == models.StatusCancelled {
		return nil, nil, fmt.Errorf("%w: order %d is cancelled", ErrInvalidTransition, order.ID)
	}
	if _, err := p.store.FindReceiptByOrder(ctx, order.ID); err == nil {
		return nil, nil, ErrAlreadyPaid
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}

	if order.Total <= 0 {
		return nil, nil, fmt.Errorf("%w: order %d has no amount due", ErrInvalidTransition, order.ID)
	}
	if in.Amount == 0 {
		in.Amount = order.Total
	}

	chargeID, err := p.gateway.Charge(ctx, ChargeRequest{
		OrderID:     order.ID,
		Method:      in.Method,
		Amount:      in.Amount,
		SourceToken: in.SourceToken,
	})
	if err != nil {
		paymentsRecorded.WithLabelValues(in.Method, "declined").Inc()
		span.RecordError(err)
		return nil, nil, err
	}

	payID, err := p.store.NextSequence(ctx, store.SeqPayments)
	if err != nil {
		return nil, nil, err
	}
	payment := &models.Payment{
		ID:        payID,
		OrderID:   order.ID,
		Method:    in.Method,
		Amount:    in.Amount,
		Confirmed: true,
		ChargeID:  chargeID,
		CreatedAt: p.now().UTC(),
	}
	if err := p.store.InsertPayment(ctx, payment); err != nil {
		return nil, nil, fmt.Errorf("insert payment: %w", err)
	}

	receipt, err := p.issueReceipt(ctx, order, in.Method)
	if err != nil {
		return nil, nil, err
	}

	paymentsRecorded.WithLabelValues(in.Method, "confirmed").Inc()
	paymentAmount.Observe(float64(in.Amount))
	logging.FromContext(ctx).Info("payment recorded",
		"order_id", order.ID, "payment_id", payment.ID, "receipt_id", receipt.ID, "method", in.Method, "amount", in.Amount)

	if err := p.events.Publish(ctx, events.OrderEvent{
		Type:        events.PaymentRecorded,
		OrderID:     order.ID,
		UserID:      order.UserID,
		ClientEmail: receipt.ClientEmail,
		Status:      string(order.Status),
		Amount:      in.Amount,
	}); err != nil {
		logging.FromContext(ctx).Warn("publish payment event", "order_id", order.ID, "error", err)
	}
	return payment, receipt, nil
}

func (p *Payments) issueReceipt(ctx context.Context, order *models.Order, method string) (*models.Receipt, error) {
	ctx, span := otel.Tracer("payments").Start(ctx, "IssueReceipt", trace.WithAttributes(attribute.Int("order.id", order.ID)))
	defer span.End()

	name, email := models.GuestName, models.GuestEmail
	if order.UserID != nil {
		u, err := p.store.FindUserByID(ctx, *order.UserID)
		switch {
		case err == nil:
			name, email = u.Name, u.Email
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("find user %d: %w", *order.UserID, err)
		}
	}

	id, err := p.store.NextSequence(ctx, store.SeqReceipts)
	if err != nil {
		return nil, err
	}
	items := make([]models.OrderItem, len(order.Items))
	copy(items, order.Items)

	r := &models.Receipt{
		ID:              id,
		OrderID:         order.ID,
		IssuedAt:        p.now().UTC(),
		ClientName:      name,
		ClientEmail:     email,
		DeliveryAddress: order.DeliveryAddress,
		Items:           items,
		Subtotal:        order.Subtotal,
		Discount:        order.Discount,
		PromoName:       order.PromoName,
		Total:           order.Total,
		PaymentMethod:   method,
	}
	if err := p.store.InsertReceipt(ctx, r); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyPaid
		}
		span.RecordError(err)
		return nil, fmt.Errorf("insert receipt: %w", err)
	}
	return r, nil
}

// ReceiptForOrder returns the receipt issued for an order.
func (p *Payments) ReceiptForOrder(ctx context.Context, orderID int) (*models.Receipt, error) {
	r, err := p.store.FindReceiptByOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return r, err
}

func (p *Payments) ListForOrder(ctx context.Context, orderID int) ([]models.Payment, error) {
	return p.store.ListPaymentsByOrder(ctx, orderID)
}

// ReceiptQR renders the verification QR code of an order's receipt.
func (p *Payments) ReceiptQR(ctx context.Context, orderID int) ([]byte, error) {
	r, err := p.ReceiptForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return p.signer.QRCode(r)
}

// VerifyReceipt resolves a verification token to the receipt it names.
func (p *Payments) VerifyReceipt(ctx context.Context, token string) (*models.Receipt, error) {
	claims, err := p.signer.Verify(token)
	if err != nil {
		return nil, err
	}
	r, err := p.store.FindReceipt(ctx, claims.ReceiptID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if r.OrderID != claims.OrderID {
		return nil, ErrUnauthorized
	}
	return r, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/charge"
)

// Payment methods.
const (
	MethodCash   = "efectivo"
	MethodYape   = "yape"
	MethodCard   = "tarjeta"
	methodCashEn = "cash"
	methodCardEn = "card"
)

// NormalizeMethod maps the accepted method spellings onto the canonical ones.
func NormalizeMethod(method string) (string, bool) {
	switch method {
	case MethodCash, methodCashEn:
		return MethodCash, true
	case MethodYape:
		return MethodYape, true
	case MethodCard, methodCardEn:
		return MethodCard, true
	}
	return "", false
}

type ChargeRequest struct {
	OrderID     int
	Method      string
	Amount      int64
	SourceToken string
}

// Gateway settles a payment. It returns the processor's charge id, which is
// empty for payments settled outside a processor.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (string, error)
}

// OfflineGateway confirms every payment without contacting a processor.
type OfflineGateway struct{}

func (OfflineGateway) Charge(context.Context, ChargeRequest) (string, error) {
	return "", nil
}

// StripeGateway charges card payments that carry a source token through
// Stripe and confirms everything else offline.
type StripeGateway struct {
	Client   *charge.Client
	Currency string
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{
		Client:   &charge.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		Currency: "pen",
	}
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (string, error) {
	if req.Method != MethodCard || req.SourceToken == "" {
		return "", nil
	}

	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(g.Currency),
		Source:      &stripe.SourceParams{Token: stripe.String(req.SourceToken)},
		Description: stripe.String("Pedido " + strconv.Itoa(req.OrderID)),
	}
	params.Context = ctx
	params.AddMetadata("order_id", strconv.Itoa(req.OrderID))

	ch, err := g.Client.New(params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Type == stripe.ErrorTypeCard {
			return "", fmt.Errorf("%w: %s", ErrPaymentDeclined, serr.Msg)
		}
		return "", fmt.Errorf("stripe charge: %w", err)
	}
	if string(ch.Status) == "failed" {
		return "", fmt.Errorf("%w: %s", ErrPaymentDeclined, ch.FailureMessage)
	}
	return ch.ID, nil
}

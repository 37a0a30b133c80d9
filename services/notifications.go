package services

import (
	"context"
	"fmt"
	"strings"

	"saborlimeno/gorest/events"
	"saborlimeno/gorest/logging"
)

// Notifier turns order events into customer notifications. Delivery is a
// log line; there is no mail transport.
type Notifier struct{}

// Acknowledge accepts a manual notification request for email.
func (Notifier) Acknowledge(email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", invalid("email", "is not a valid address")
	}
	return "Notificación enviada a " + email, nil
}

// HandleEvent is an events.Consumer handler.
func (Notifier) HandleEvent(ctx context.Context, evt events.OrderEvent) error {
	msg := NotificationText(evt)
	if msg == "" {
		return nil
	}
	to := evt.ClientEmail
	if to == "" {
		to = "-"
	}
	logging.FromContext(ctx).Info("notification", "to", to, "order_id", evt.OrderID, "type", evt.Type, "message", msg)
	return nil
}

// NotificationText renders the customer facing message for an event, or ""
// for events that do not notify anyone.
func NotificationText(evt events.OrderEvent) string {
	switch evt.Type {
	case events.OrderCreated:
		return fmt.Sprintf("Recibimos tu pedido #%d.", evt.OrderID)
	case events.OrderCancelled:
		return fmt.Sprintf("Tu pedido #%d fue anulado.", evt.OrderID)
	case events.PaymentRecorded:
		return fmt.Sprintf("Pago confirmado para el pedido #%d.", evt.OrderID)
	case events.OrderStatusChanged:
		switch evt.Status {
		case "preparando":
			return fmt.Sprintf("Tu pedido #%d se está preparando.", evt.OrderID)
		case "listo":
			return fmt.Sprintf("Tu pedido #%d está listo.", evt.OrderID)
		case "en_ruta":
			return fmt.Sprintf("Tu pedido #%d va en camino con %s.", evt.OrderID, evt.Driver)
		case "entregado":
			return fmt.Sprintf("Tu pedido #%d fue entregado. ¡Buen provecho!", evt.OrderID)
		}
	}
	return ""
}

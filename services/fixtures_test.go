package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"saborlimeno/gorest/events"
	"saborlimeno/gorest/models"
	"saborlimeno/gorest/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.OrderEvent) error {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var epoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	st       *store.Memory
	clock    *fakeClock
	pub      *recordingPublisher
	orders   *Orders
	payments *Payments
	signer   *ReceiptSigner
}

// newFixture returns services over a memory store holding the house menu.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	_, err := NewCatalog(st).SeedMenu(context.Background())
	require.NoError(t, err)

	f := &fixture{
		st:     st,
		clock:  &fakeClock{t: epoch},
		pub:    &recordingPublisher{},
		signer: NewReceiptSigner("test-secret", "http://localhost:8080"),
	}
	f.orders = NewOrders(st, f.pub)
	f.orders.now = f.clock.Now
	f.payments = NewPayments(st, OfflineGateway{}, f.signer, f.pub)
	f.payments.now = f.clock.Now
	return f
}

// user inserts an account directly, skipping password hashing.
func (f *fixture) user(t *testing.T, name string, role models.Role, category models.Category) *models.User {
	t.Helper()
	ctx := context.Background()
	id, err := f.st.NextSequence(ctx, store.SeqUsers)
	require.NoError(t, err)
	u := &models.User{
		ID:       id,
		Name:     name,
		Email:    name + "@correo.pe",
		Role:     role,
		Category: category,
	}
	require.NoError(t, f.st.InsertUser(ctx, u))
	return u
}

// order places a one line order of Ceviche Clásico (10990).
func (f *fixture) order(t *testing.T, user *models.User) *models.OrderView {
	t.Helper()
	v, err := f.orders.Create(context.Background(), user, CreateOrderInput{
		Items:           []models.CartLine{{DishID: 1, Quantity: 1}},
		PaymentMethod:   MethodCash,
		DeliveryAddress: "Av. Larco 123, Miraflores",
	})
	require.NoError(t, err)
	return v
}

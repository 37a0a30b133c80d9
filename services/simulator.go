package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"saborlimeno/gorest/logging"
	"saborlimeno/gorest/models"
)

// Drivers is the delivery roster the simulator assigns from.
var Drivers = []string{
	"Carlos Rojas",
	"María Quispe",
	"Jorge Huamán",
	"Lucía Torres",
	"Renato Salazar",
}

// StatusAt is the status an order should have after elapsed time has passed
// since it was placed.
func StatusAt(elapsed time.Duration) models.OrderStatus {
	switch {
	case elapsed < 20*time.Second:
		return models.StatusPending
	case elapsed < 60*time.Second:
		return models.StatusPreparing
	case elapsed < 90*time.Second:
		return models.StatusReady
	case elapsed < 120*time.Second:
		return models.StatusEnRoute
	}
	return models.StatusDelivered
}

// Simulator drives orders through the kitchen and delivery steps based on
// their age, issuing the same commands a kitchen or driver would. It can be
// installed as the engine's read hook or run as a periodic sweep.
type Simulator struct {
	engine  *Orders
	drivers []string
	now     func() time.Time
	pick    func(roster []string) string
}

var _ ReadHook = (*Simulator)(nil)

func NewSimulator(engine *Orders) *Simulator {
	return &Simulator{
		engine:  engine,
		drivers: Drivers,
		now:     time.Now,
		pick:    func(roster []string) string { return roster[rand.IntN(len(roster))] },
	}
}

// Advance steps o forward until it reaches the status its age calls for.
// It never moves an order backwards, never touches terminal orders and never
// replaces a driver already assigned.
func (s *Simulator) Advance(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o.Status.Terminal() {
		return o, nil
	}
	target := StatusAt(s.now().Sub(o.CreatedAt))

	for o.Status.Rank() < target.Rank() {
		next, err := s.step(ctx, o)
		if errors.Is(err, ErrInvalidTransition) {
			// someone else moved the order meanwhile; report what is stored now
			return s.engine.find(ctx, o.ID)
		}
		if err != nil {
			return nil, err
		}
		o = next
	}
	return o, nil
}

func (s *Simulator) step(ctx context.Context, o *models.Order) (*models.Order, error) {
	switch o.Status {
	case models.StatusPending:
		return s.engine.MarkPreparing(ctx, o.ID)
	case models.StatusPreparing:
		return s.engine.MarkReady(ctx, o.ID)
	case models.StatusReady:
		driver := o.Driver
		if driver == "" {
			driver = s.pick(s.drivers)
		}
		return s.engine.Dispatch(ctx, o.ID, driver)
	case models.StatusEnRoute:
		return s.engine.Deliver(ctx, o.ID)
	}
	return nil, ErrInvalidTransition
}

// Sweep advances every open order once and reports how many changed status.
func (s *Simulator) Sweep(ctx context.Context) (int, error) {
	open, err := s.engine.Open(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range open {
		before := open[i].Status
		after, err := s.Advance(ctx, &open[i])
		if err != nil {
			return changed, err
		}
		if after.Status != before {
			changed++
		}
	}
	return changed, nil
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) {
	log := logging.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Error("simulator sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("simulator advanced orders", "count", n)
			}
		}
	}
}

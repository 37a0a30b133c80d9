package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"saborlimeno/gorest/models"
)

// Memory is a process-local Store used by tests and by STORE=memory.
// Records are copied on the way in and out so callers never share state
// with the store.
type Memory struct {
	mu       sync.RWMutex
	counters map[string]int
	users    map[int]models.User
	dishes   map[int]models.Dish
	orders   map[int]models.Order
	payments []models.Payment
	receipts map[int]models.Receipt
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		counters: map[string]int{},
		users:    map[int]models.User{},
		dishes:   map[int]models.Dish{},
		orders:   map[int]models.Order{},
		receipts: map[int]models.Receipt{},
	}
}

func (m *Memory) NextSequence(_ context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
	return m.counters[name], nil
}

func (m *Memory) InsertUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) FindUserByID(_ context.Context, id int) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Memory) UpdateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.users {
		if id != u.ID && strings.EqualFold(other.Email, u.Email) {
			return ErrDuplicate
		}
	}
	existing.Name = u.Name
	existing.Email = u.Email
	existing.Role = u.Role
	existing.Category = u.Category
	m.users[u.ID] = existing
	return nil
}

func (m *Memory) CountClientsByCategory(_ context.Context) (map[models.Category]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[models.Category]int64{}
	for _, u := range m.users {
		if u.Role == models.RoleClient {
			out[u.Category]++
		}
	}
	return out, nil
}

func (m *Memory) InsertDish(_ context.Context, d *models.Dish) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dishes[d.ID]; ok {
		return ErrDuplicate
	}
	m.dishes[d.ID] = *d
	return nil
}

func (m *Memory) FindDish(_ context.Context, id int) (*models.Dish, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.dishes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *Memory) ListDishes(_ context.Context, onlyAvailable bool) ([]models.Dish, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dishes := []models.Dish{}
	for _, d := range m.dishes {
		if onlyAvailable && !d.Available {
			continue
		}
		dishes = append(dishes, d)
	}
	sort.Slice(dishes, func(i, j int) bool { return dishes[i].ID < dishes[j].ID })
	return dishes, nil
}

func (m *Memory) UpdateDish(_ context.Context, d *models.Dish) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dishes[d.ID]; !ok {
		return ErrNotFound
	}
	m.dishes[d.ID] = *d
	return nil
}

func (m *Memory) InsertOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return ErrDuplicate
	}
	m.orders[o.ID] = copyOrder(*o)
	return nil
}

func (m *Memory) FindOrder(_ context.Context, id int) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o = copyOrder(o)
	return &o, nil
}

func (m *Memory) ListOrders(_ context.Context) ([]models.Order, error) {
	return m.selectOrders(func(models.Order) bool { return true }), nil
}

func (m *Memory) ListOrdersByUser(_ context.Context, userID int) ([]models.Order, error) {
	return m.selectOrders(func(o models.Order) bool {
		return o.UserID != nil && *o.UserID == userID
	}), nil
}

func (m *Memory) LatestOrderByUser(ctx context.Context, userID int) (*models.Order, error) {
	orders, _ := m.ListOrdersByUser(ctx, userID)
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

func (m *Memory) ListOrdersByStatus(_ context.Context, statuses ...models.OrderStatus) ([]models.Order, error) {
	orders := m.selectOrders(func(o models.Order) bool { return hasStatus(o.Status, statuses) })
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, id int, status models.OrderStatus, driver string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	if driver != "" {
		o.Driver = driver
	}
	m.orders[id] = o
	return nil
}

func (m *Memory) SalesSummary(_ context.Context) (models.SalesSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s models.SalesSummary
	for _, o := range m.orders {
		s.OrderCount++
		if o.Status != models.StatusCancelled {
			s.TotalSales += o.Total
		}
	}
	return s, nil
}

func (m *Memory) CountOrdersByStatus(_ context.Context, statuses ...models.OrderStatus) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, o := range m.orders {
		if hasStatus(o.Status, statuses) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) InsertPayment(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, *p)
	return nil
}

func (m *Memory) ListPaymentsByOrder(_ context.Context, orderID int) ([]models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Payment{}
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) InsertReceipt(_ context.Context, r *models.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.receipts {
		if existing.ID == r.ID || existing.OrderID == r.OrderID {
			return ErrDuplicate
		}
	}
	m.receipts[r.ID] = *copyReceipt(*r)
	return nil
}

func (m *Memory) FindReceipt(_ context.Context, id int) (*models.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.receipts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyReceipt(r), nil
}

func (m *Memory) FindReceiptByOrder(_ context.Context, orderID int) (*models.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.receipts {
		if r.OrderID == orderID {
			return copyReceipt(r), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) selectOrders(keep func(models.Order) bool) []models.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := []models.Order{}
	for _, o := range m.orders {
		if keep(o) {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders
}

func copyReceipt(r models.Receipt) *models.Receipt {
	r.Items = append([]models.OrderItem(nil), r.Items...)
	return &r
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	if o.UserID != nil {
		id := *o.UserID
		o.UserID = &id
	}
	return o
}

func hasStatus(s models.OrderStatus, statuses []models.OrderStatus) bool {
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

// MemorySessions is a process-local Sessions implementation.
type MemorySessions struct {
	mu     sync.RWMutex
	tokens map[string]int
}

var _ Sessions = (*MemorySessions)(nil)

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{tokens: map[string]int{}}
}

func (s *MemorySessions) Create(_ context.Context, userID int) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()
	return token, nil
}

func (s *MemorySessions) Lookup(_ context.Context, token string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

func (s *MemorySessions) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return nil
}

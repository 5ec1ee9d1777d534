package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
)

type fakeOrderStore struct {
	mu            sync.Mutex
	orders        map[string]*entity.Order
	statusWrites  int
	touches       []string
	failFindByID  error
	methodUpdates map[string]string
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders:        map[string]*entity.Order{},
		methodUpdates: map[string]string{},
	}
}

func (s *fakeOrderStore) put(order *entity.Order) *entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyItem := *order
	s.orders[order.ID] = &copyItem
	return order
}

func (s *fakeOrderStore) get(id string) *entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.orders[id]
	if !ok {
		return nil
	}
	copyItem := *item
	return &copyItem
}

func (s *fakeOrderStore) Create(_ context.Context, order *entity.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if _, ok := s.orders[order.ID]; ok {
		return repository.ErrOrderAlreadyExists
	}
	copyItem := *order
	s.orders[order.ID] = &copyItem
	return nil
}

func (s *fakeOrderStore) FindByID(_ context.Context, id string) (*entity.Order, error) {
	if s.failFindByID != nil {
		return nil, s.failFindByID
	}
	return s.get(id), nil
}

func (s *fakeOrderStore) List(_ context.Context, filter repository.OrderFilter) ([]*entity.Order, error) {
	items := s.filter(func(o *entity.Order) bool {
		if filter.Status != "" && o.Status != filter.Status {
			return false
		}
		return filter.PaymentStatus == "" || o.PaymentStatus == filter.PaymentStatus
	})
	if filter.Limit > 0 && int(filter.Limit) < len(items) {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *fakeOrderStore) FindByUserEmail(_ context.Context, email string) ([]*entity.Order, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.filter(func(o *entity.Order) bool {
		return o.Details.ContactInfo.Email == email
	}), nil
}

func (s *fakeOrderStore) FindByPhone(_ context.Context, phone string) ([]*entity.Order, error) {
	normalized := repository.NormalizePhone(phone)
	return s.filter(func(o *entity.Order) bool {
		stored := repository.NormalizePhone(o.Details.ContactInfo.Phone)
		return stored != "" && (strings.Contains(stored, normalized) || strings.Contains(normalized, stored))
	}), nil
}

func (s *fakeOrderStore) UpdatePaymentMethod(_ context.Context, id, method string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	item.PaymentMethod = method
	item.UpdatedAt = at
	s.methodUpdates[id] = method
	return nil
}

func (s *fakeOrderStore) UpdatePaymentStatus(_ context.Context, id, paymentStatus, status string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.orders[id]
	if !ok || item.PaymentStatus == entity.PaymentStatusPaid || item.PaymentStatus == entity.PaymentStatusRefunded {
		return false, nil
	}
	item.PaymentStatus = paymentStatus
	item.Status = status
	item.UpdatedAt = at
	s.statusWrites++
	return true, nil
}

func (s *fakeOrderStore) UpdateStatus(_ context.Context, id, status string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	item.Status = status
	item.UpdatedAt = at
	return nil
}

func (s *fakeOrderStore) Touch(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	item.UpdatedAt = at
	s.touches = append(s.touches, id)
	return nil
}

func (s *fakeOrderStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *fakeOrderStore) ListForReconcile(_ context.Context, providers []string, before time.Time, limit int32) ([]*entity.Order, error) {
	allowed := map[string]bool{}
	for _, tag := range providers {
		allowed[tag] = true
	}
	items := s.filter(func(o *entity.Order) bool {
		return o.PaymentStatus == entity.PaymentStatusPending && allowed[o.PaymentMethod] && !o.UpdatedAt.After(before)
	})
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (s *fakeOrderStore) ListExpiredPending(_ context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error) {
	items := s.filter(func(o *entity.Order) bool {
		return o.PaymentStatus == entity.PaymentStatusPending && o.Status == entity.OrderStatusPending && !o.CreatedAt.After(cutoff)
	})
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (s *fakeOrderStore) Stats(_ context.Context) (*repository.OrderStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &repository.OrderStats{Revenue: decimal.Zero}
	for _, item := range s.orders {
		stats.Total++
		switch item.PaymentStatus {
		case entity.PaymentStatusPending:
			stats.Pending++
		case entity.PaymentStatusPaid:
			stats.Paid++
			stats.Revenue = stats.Revenue.Add(item.TotalAmount)
		case entity.PaymentStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (s *fakeOrderStore) filter(keep func(*entity.Order) bool) []*entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]*entity.Order, 0)
	for _, item := range s.orders {
		if keep(item) {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items
}

type fakeEventStore struct {
	mu     sync.Mutex
	events []*entity.PaymentEvent
}

func (s *fakeEventStore) Create(_ context.Context, event *entity.PaymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyItem := *event
	copyItem.ID = uint64(len(s.events) + 1)
	s.events = append(s.events, &copyItem)
	event.ID = copyItem.ID
	return nil
}

func (s *fakeEventStore) ListByOrder(_ context.Context, orderID string) ([]*entity.PaymentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]*entity.PaymentEvent, 0)
	for _, item := range s.events {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *fakeEventStore) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]string, 0, len(s.events))
	for _, item := range s.events {
		items = append(items, item.EventType)
	}
	return items
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*entity.User{}}
}

func (s *fakeUserStore) Create(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return repository.ErrUserAlreadyExists
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	copyItem := *user
	s.users[user.Email] = &copyItem
	return nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (s *fakeUserStore) ListRecent(_ context.Context, limit int32) ([]*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]*entity.User, 0, len(s.users))
	for _, item := range s.users {
		items = append(items, item)
	}
	if int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (s *fakeUserStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}

type fakeProvider struct {
	tag         string
	createCalls int
	checkCalls  int
	result      *provider.PaymentResult
	createErr   error
	outcome     *provider.Outcome
	checkErr    error
}

func (p *fakeProvider) Tag() string {
	return p.tag
}

func (p *fakeProvider) CreatePayment(_ context.Context, req *provider.PaymentRequest) (*provider.PaymentResult, error) {
	p.createCalls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	if p.result != nil {
		return p.result, nil
	}
	return &provider.PaymentResult{
		OrderID:           req.OrderID,
		Provider:          p.tag,
		PaymentURL:        "https://pay.example/" + req.OrderID,
		ProviderPaymentID: "pay-" + req.OrderID,
		Status:            provider.StatusPending,
	}, nil
}

func (p *fakeProvider) CheckStatus(_ context.Context, orderID string) (*provider.Outcome, error) {
	p.checkCalls++
	if p.checkErr != nil {
		return nil, p.checkErr
	}
	outcome := *p.outcome
	outcome.OrderID = orderID
	return &outcome, nil
}

func (p *fakeProvider) ParseWebhook(raw []byte) *provider.Outcome {
	return &provider.Outcome{Provider: p.tag, Status: provider.StatusUnknown, Raw: raw}
}

func pendingOrder(id string, total int64) *entity.Order {
	now := time.Now().UTC()
	return &entity.Order{
		ID:            id,
		UserID:        "user-1",
		Status:        entity.OrderStatusPending,
		PaymentStatus: entity.PaymentStatusPending,
		PaymentMethod: PaymentMethodAPI,
		TotalAmount:   decimal.NewFromInt(total),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

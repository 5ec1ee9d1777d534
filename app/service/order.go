package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/factory"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListLimit   = int32(100)
	dashboardRecentMax = int32(10)

	PaymentMethodAPI = "api"
	PaymentMethodBot = "telegram_bot"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type orderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) ([]*entity.Order, error)
	FindByUserEmail(ctx context.Context, email string) ([]*entity.Order, error)
	FindByPhone(ctx context.Context, phone string) ([]*entity.Order, error)
	UpdateStatus(ctx context.Context, id, status string, at time.Time) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*repository.OrderStats, error)
}

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	ListRecent(ctx context.Context, limit int32) ([]*entity.User, error)
	Count(ctx context.Context) (int64, error)
}

type orderEventRepository interface {
	ListByOrder(ctx context.Context, orderID string) ([]*entity.PaymentEvent, error)
}

type CreateOrderInput struct {
	Email string
	Name  string
	Phone string
	Items []entity.OrderItem
	// TotalAmount is used only when Items is empty.
	TotalAmount   decimal.Decimal
	PaymentMethod string
}

type Dashboard struct {
	Stats        repository.OrderStats
	TotalUsers   int64
	RecentOrders []*entity.Order
	RecentUsers  []*entity.User
}

type OrderService struct {
	orderRepo orderRepository
	userRepo  userRepository
	eventRepo orderEventRepository
	logger    *logrus.Entry
}

func NewOrderService(orderRepo orderRepository, userRepo userRepository, eventRepo orderEventRepository) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		eventRepo: eventRepo,
		logger:    factory.NewModuleLogger("order-service"),
	}
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// CreateOrder stores a pending order, creating the customer by email when needed.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*entity.Order, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	total := in.TotalAmount
	if len(in.Items) > 0 {
		total = decimal.Zero
		for _, item := range in.Items {
			if strings.TrimSpace(item.Item) == "" {
				return nil, newValidationError("Item name is required")
			}
			if item.Price.IsNegative() {
				return nil, newValidationError("Item price must not be negative")
			}
			total = total.Add(item.Price)
		}
	}
	if !total.IsPositive() {
		return nil, ErrInvalidAmount
	}

	user, err := s.ensureUser(ctx, email, strings.TrimSpace(in.Name))
	if err != nil {
		return nil, err
	}

	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = PaymentMethodAPI
	}

	items := in.Items
	if items == nil {
		items = []entity.OrderItem{}
	}

	now := time.Now().UTC()
	order := &entity.Order{
		UserID:        user.ID,
		Status:        entity.OrderStatusPending,
		PaymentStatus: entity.PaymentStatusPending,
		PaymentMethod: method,
		TotalAmount:   total,
		Details: entity.OrderDetails{
			Items: items,
			ContactInfo: entity.ContactInfo{
				Name:  strings.TrimSpace(in.Name),
				Email: email,
				Phone: strings.TrimSpace(in.Phone),
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  user.ID,
		"total":    total.StringFixed(2),
		"method":   method,
	}).Info("order_created")

	return order, nil
}

func (s *OrderService) ensureUser(ctx context.Context, email, name string) (*entity.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	now := time.Now().UTC()
	user = &entity.User{
		Email:     email,
		FullName:  name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, err
		}
		// lost a race with a concurrent insert
		user, err = s.userRepo.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, repository.ErrUserAlreadyExists
		}
	}
	return user, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]*entity.Order, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.orderRepo.List(ctx, filter)
}

func (s *OrderService) FindOrdersByEmail(ctx context.Context, email string) ([]*entity.Order, error) {
	if !IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	return s.orderRepo.FindByUserEmail(ctx, email)
}

func (s *OrderService) FindOrdersByPhone(ctx context.Context, phone string) ([]*entity.Order, error) {
	if repository.NormalizePhone(phone) == "" {
		return nil, newValidationError("Phone is required")
	}
	return s.orderRepo.FindByPhone(ctx, phone)
}

// FindOrdersByContact treats anything shaped like an email as one and
// everything else as a phone number.
func (s *OrderService) FindOrdersByContact(ctx context.Context, contact string) ([]*entity.Order, error) {
	contact = strings.TrimSpace(contact)
	if IsValidEmail(contact) {
		return s.FindOrdersByEmail(ctx, contact)
	}
	return s.FindOrdersByPhone(ctx, contact)
}

func (s *OrderService) CancelOrder(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == entity.OrderStatusCancelled {
		return order, nil
	}
	if order.IsPaid() {
		return nil, ErrInvalidStatus
	}

	now := time.Now().UTC()
	if err := s.orderRepo.UpdateStatus(ctx, order.ID, entity.OrderStatusCancelled, now); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	order.Status = entity.OrderStatusCancelled
	order.UpdatedAt = now

	s.logger.WithField("order_id", order.ID).Info("order_cancelled")
	return order, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if err := s.orderRepo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	s.logger.WithField("order_id", id).Info("order_deleted")
	return nil
}

func (s *OrderService) ListPaymentEvents(ctx context.Context, orderID string) ([]*entity.PaymentEvent, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByOrder(ctx, strings.TrimSpace(orderID))
}

// Dashboard loads the admin overview with one query per panel run concurrently.
func (s *OrderService) Dashboard(ctx context.Context) (*Dashboard, error) {
	dashboard := &Dashboard{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := s.orderRepo.Stats(gctx)
		if err != nil {
			return err
		}
		dashboard.Stats = *stats
		return nil
	})
	g.Go(func() error {
		total, err := s.userRepo.Count(gctx)
		if err != nil {
			return err
		}
		dashboard.TotalUsers = total
		return nil
	})
	g.Go(func() error {
		orders, err := s.orderRepo.List(gctx, repository.OrderFilter{Limit: dashboardRecentMax})
		if err != nil {
			return err
		}
		dashboard.RecentOrders = orders
		return nil
	})
	g.Go(func() error {
		users, err := s.userRepo.ListRecent(gctx, dashboardRecentMax)
		if err != nil {
			return err
		}
		dashboard.RecentUsers = users
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dashboard, nil
}

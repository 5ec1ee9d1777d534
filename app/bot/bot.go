package bot

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/factory"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/app/service"
)

const pollTimeoutSeconds = 60

// API is the subset of *tgbotapi.BotAPI the bot talks to.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type orderService interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*entity.Order, error)
	GetOrder(ctx context.Context, id string) (*entity.Order, error)
	FindOrdersByContact(ctx context.Context, contact string) ([]*entity.Order, error)
	CancelOrder(ctx context.Context, id string) (*entity.Order, error)
}

type paymentService interface {
	PayOrder(ctx context.Context, orderID, providerTag, successURL, failURL string) (*provider.PaymentResult, error)
	ProcessBotPayment(ctx context.Context, raw []byte) (*provider.Outcome, error)
}

type Config struct {
	// ServerURL is the public base for payment redirect pages.
	ServerURL string
	// DefaultProvider is used by /pay without a provider and after /order.
	DefaultProvider string
}

type flow string

const (
	flowOrder  flow = "order"
	flowStatus flow = "status"
	flowCancel flow = "cancel"
)

type orderStep int

const (
	stepSelectItems orderStep = iota
	stepName
	stepEmail
	stepPhone
	stepConfirm
)

type session struct {
	Flow  flow
	Step  orderStep
	Items []entity.OrderItem
	Total decimal.Decimal
	Name  string
	Email string
	Phone string
}

type Bot struct {
	api      API
	orders   orderService
	payments paymentService
	cfg      Config
	logger   *logrus.Entry

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(api API, orders orderService, payments paymentService, cfg Config) *Bot {
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = provider.TagTelegram
	}
	return &Bot{
		api:      api,
		orders:   orders,
		payments: payments,
		cfg:      cfg,
		logger:   factory.NewModuleLogger("telegram-bot"),
		sessions: map[int64]*session{},
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("bot polling started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.PreCheckoutQuery != nil:
		err = b.handlePreCheckout(ctx, update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		err = b.handleSuccessfulPayment(ctx, update.Message)
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	}
	if err != nil {
		b.logger.WithError(err).WithField("update_id", update.UpdateID).Error("bot update failed")
	}
}

func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

func (b *Bot) setSession(chatID int64, s *session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = s
}

func (b *Bot) clearSession(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, chatID)
}

func (b *Bot) sendText(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

// parseCommand splits "/pay@shop_bot abc telegram" into "pay" and its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	command := strings.TrimPrefix(fields[0], "/")
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}
	return strings.ToLower(command), fields[1:]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/app/service"
)

const helpText = "📋 Список доступных команд:\n\n" +
	"🚀 /start - начать работу с ботом\n" +
	"❓ /help - показать эту справку\n" +
	"📖 /menu - показать меню товаров и услуг\n" +
	"🛒 /order - оформить новый заказ\n" +
	"💳 /pay <номер заказа> [tinkoff|yoomoney|telegram] - оплатить заказ\n" +
	"📊 /status <email или телефон> - проверить статус заказа\n" +
	"❌ /cancel <email или телефон> - отменить активный заказ"

const (
	textContactPrompt = "Введите ваш email или номер телефона, использованный при оформлении заказа:"
	textGenericError  = "Произошла ошибка. Пожалуйста, попробуйте позже."
)

var phonePattern = regexp.MustCompile(`^\+?\d[\d\s\-()]{8,}$`)

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	if m.Chat == nil {
		return nil
	}
	chatID := m.Chat.ID
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		command, args := parseCommand(text)
		return b.handleCommand(ctx, chatID, command, args)
	}

	s := b.session(chatID)
	if s == nil {
		return b.sendText(chatID, "Используйте /help для получения списка команд.")
	}

	switch s.Flow {
	case flowOrder:
		return b.handleOrderInput(ctx, chatID, s, text)
	case flowStatus:
		b.clearSession(chatID)
		return b.showStatus(ctx, chatID, text)
	case flowCancel:
		b.clearSession(chatID)
		return b.showCancelable(ctx, chatID, text)
	default:
		b.clearSession(chatID)
		return b.sendText(chatID, "Сброс состояния. Нажмите /start")
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command string, args []string) error {
	switch command {
	case "start":
		b.clearSession(chatID)
		return b.sendText(chatID, "Привет! Я бот фотостудии. Используйте /help для получения списка команд.")
	case "help":
		return b.sendText(chatID, helpText)
	case "menu":
		return b.sendWithKeyboard(chatID, "Добро пожаловать в наше меню! Выберите категорию:", categoriesKeyboard("menu:"))
	case "order":
		b.setSession(chatID, &session{Flow: flowOrder, Step: stepSelectItems, Total: decimal.Zero})
		return b.sendWithKeyboard(chatID, "Добро пожаловать в процесс оформления заказа! Выберите категорию товара:", categoriesKeyboard("order:cat:"))
	case "pay":
		if len(args) == 0 {
			return b.sendText(chatID, "Укажите номер заказа: /pay <номер заказа> [tinkoff|yoomoney|telegram]")
		}
		providerTag := b.cfg.DefaultProvider
		if len(args) > 1 {
			providerTag = args[1]
		}
		return b.sendPayment(ctx, chatID, args[0], providerTag)
	case "status":
		if len(args) > 0 {
			return b.showStatus(ctx, chatID, strings.Join(args, " "))
		}
		b.setSession(chatID, &session{Flow: flowStatus})
		return b.sendText(chatID, "Проверка статуса заказа\n\n"+textContactPrompt)
	case "cancel":
		if len(args) > 0 {
			return b.showCancelable(ctx, chatID, strings.Join(args, " "))
		}
		b.setSession(chatID, &session{Flow: flowCancel})
		return b.sendText(chatID, "Отмена заказа\n\n"+textContactPrompt)
	default:
		return b.sendText(chatID, "Неизвестная команда. Используйте /help")
	}
}

func (b *Bot) handleOrderInput(ctx context.Context, chatID int64, s *session, text string) error {
	switch s.Step {
	case stepSelectItems:
		return b.sendText(chatID, "Выберите товары с помощью кнопок и нажмите «Завершить выбор товаров».")
	case stepName:
		if utf8.RuneCountInString(text) < 2 {
			return b.sendText(chatID, "Пожалуйста, введите корректное имя (минимум 2 символа):")
		}
		s.Name = text
		s.Step = stepEmail
		return b.sendText(chatID, "Теперь введите ваш email:")
	case stepEmail:
		if !service.IsValidEmail(text) {
			return b.sendText(chatID, "Пожалуйста, введите корректный email:")
		}
		s.Email = text
		s.Step = stepPhone
		return b.sendText(chatID, "Теперь введите ваш номер телефона:")
	case stepPhone:
		if !phonePattern.MatchString(text) {
			return b.sendText(chatID, "Пожалуйста, введите корректный номер телефона:")
		}
		s.Phone = text
		s.Step = stepConfirm
		return b.sendText(chatID, fmt.Sprintf(
			"Подтвердите ваш заказ:\n\nТовары:\n%s\n\nОбщая сумма: %s руб.\n\nКонтактная информация:\nИмя: %s\nEmail: %s\nТелефон: %s\n\nВведите \"да\" для подтверждения или \"нет\" для отмены:",
			itemsText(s.Items), s.Total.String(), s.Name, s.Email, s.Phone,
		))
	case stepConfirm:
		switch strings.ToLower(text) {
		case "да", "yes":
			return b.confirmOrder(ctx, chatID, s)
		case "нет", "no":
			b.clearSession(chatID)
			return b.sendText(chatID, "Заказ отменен. Используйте /order для начала нового заказа.")
		default:
			return b.sendText(chatID, "Пожалуйста, введите \"да\" или \"нет\":")
		}
	}
	return nil
}

func (b *Bot) confirmOrder(ctx context.Context, chatID int64, s *session) error {
	b.clearSession(chatID)

	order, err := b.orders.CreateOrder(ctx, service.CreateOrderInput{
		Email:         s.Email,
		Name:          s.Name,
		Phone:         s.Phone,
		Items:         s.Items,
		PaymentMethod: service.PaymentMethodBot,
	})
	if err != nil {
		b.logger.WithError(err).WithField("chat_id", chatID).Error("bot order creation failed")
		return b.sendText(chatID, "❌ Произошла ошибка при оформлении заказа. Пожалуйста, попробуйте позже или обратитесь в поддержку.")
	}

	b.logger.WithFields(logrus.Fields{
		"chat_id":  chatID,
		"order_id": order.ID,
	}).Info("bot_order_created")

	if err := b.sendText(chatID, fmt.Sprintf(
		"✅ Заказ успешно оформлен!\n\n📋 Номер заказа: %s\n📊 Статус: Ожидает оплаты\n💰 Общая сумма: %s руб.",
		order.ID, order.TotalAmount.String(),
	)); err != nil {
		return err
	}
	return b.sendPayment(ctx, chatID, order.ID, b.cfg.DefaultProvider)
}

func (b *Bot) sendPayment(ctx context.Context, chatID int64, orderID, providerTag string) error {
	result, err := b.payments.PayOrder(ctx, orderID, providerTag,
		b.cfg.ServerURL+"/payment/success?order_id="+orderID,
		b.cfg.ServerURL+"/payment/fail?order_id="+orderID,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return b.sendText(chatID, "Заказ не найден. Проверьте номер заказа.")
		case errors.Is(err, service.ErrOrderAlreadyPaid):
			return b.sendText(chatID, "Заказ уже оплачен.")
		case errors.Is(err, service.ErrInvalidProvider):
			return b.sendText(chatID, "Этот способ оплаты недоступен.")
		default:
			b.logger.WithError(err).WithFields(logrus.Fields{
				"order_id": orderID,
				"provider": providerTag,
			}).Error("bot payment creation failed")
			return b.sendText(chatID, fmt.Sprintf("❌ Не удалось подготовить счет для оплаты. Используйте /pay %s позже.", orderID))
		}
	}

	if result.Invoice != nil {
		return b.sendInvoice(chatID, result.Invoice)
	}
	return b.sendText(chatID, fmt.Sprintf("💳 Оплата заказа #%s:\n%s", shortID(orderID), result.PaymentURL))
}

func (b *Bot) sendInvoice(chatID int64, invoice *provider.InvoiceData) error {
	prices := make([]tgbotapi.LabeledPrice, 0, len(invoice.Prices))
	for _, price := range invoice.Prices {
		prices = append(prices, tgbotapi.LabeledPrice{Label: price.Label, Amount: int(price.Amount)})
	}

	cfg := tgbotapi.NewInvoice(chatID, invoice.Title, invoice.Description, invoice.Payload,
		invoice.ProviderToken, "", invoice.Currency, prices)
	// a nil slice is sent as null, which the Bot API rejects
	cfg.SuggestedTipAmounts = []int{}

	_, err := b.api.Send(cfg)
	return err
}

func (b *Bot) showStatus(ctx context.Context, chatID int64, contact string) error {
	orders, err := b.orders.FindOrdersByContact(ctx, contact)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return b.sendText(chatID, "Введите корректный email или номер телефона.")
		}
		b.logger.WithError(err).Error("bot order lookup failed")
		return b.sendText(chatID, textGenericError)
	}
	if len(orders) == 0 {
		return b.sendText(chatID, "Заказы не найдены. Проверьте email или телефон и попробуйте еще раз.")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Найдено %d заказ(ов):\n", len(orders))
	for _, order := range orders {
		fmt.Fprintf(&sb, "\n📋 Заказ #%s\n📊 Статус: %s\n💳 Оплата: %s\n💰 Сумма: %s руб.\n📅 %s\n",
			shortID(order.ID),
			formatStatus(order.Status),
			formatPaymentStatus(order.PaymentStatus),
			order.TotalAmount.String(),
			order.CreatedAt.Format("02.01.2006 15:04"),
		)
	}
	return b.sendText(chatID, sb.String())
}

func (b *Bot) showCancelable(ctx context.Context, chatID int64, contact string) error {
	orders, err := b.orders.FindOrdersByContact(ctx, contact)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return b.sendText(chatID, "Введите корректный email или номер телефона.")
		}
		b.logger.WithError(err).Error("bot order lookup failed")
		return b.sendText(chatID, textGenericError)
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(orders))
	for _, order := range orders {
		if order.Status == entity.OrderStatusCancelled || order.IsPaid() {
			continue
		}
		label := fmt.Sprintf("Заказ #%s - %s - %s руб.", shortID(order.ID), formatStatus(order.Status), order.TotalAmount.String())
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, "cancel:"+order.ID)))
	}
	if len(rows) == 0 {
		return b.sendText(chatID, "Активные заказы не найдены. Оплаченные и отмененные заказы отменить нельзя.")
	}
	return b.sendWithKeyboard(chatID, "Выберите заказ для отмены:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	chatID := callbackChatID(q)
	answer, err := b.routeCallback(ctx, chatID, q.Data)
	if _, ackErr := b.api.Request(tgbotapi.NewCallback(q.ID, answer)); ackErr != nil && err == nil {
		err = ackErr
	}
	return err
}

// routeCallback returns the short notice shown on the pressed button.
func (b *Bot) routeCallback(ctx context.Context, chatID int64, data string) (string, error) {
	switch {
	case strings.HasPrefix(data, "menu:"):
		category, ok := findCategory(strings.TrimPrefix(data, "menu:"))
		if !ok {
			return "Категория не найдена", nil
		}
		lines := make([]string, 0, len(category.Items))
		for _, item := range category.Items {
			lines = append(lines, "• "+item.label())
		}
		return "", b.sendText(chatID, "Категория: "+category.Name+"\n\n"+strings.Join(lines, "\n")+"\n\nДля заказа используйте /order")
	case strings.HasPrefix(data, "order:"):
		return b.routeOrderCallback(chatID, data)
	case strings.HasPrefix(data, "cancel:"):
		return b.cancelFromCallback(ctx, chatID, strings.TrimPrefix(data, "cancel:"))
	default:
		return "Неизвестная команда", nil
	}
}

func (b *Bot) routeOrderCallback(chatID int64, data string) (string, error) {
	s := b.session(chatID)
	if s == nil || s.Flow != flowOrder {
		return "Сессия заказа истекла. Начните заново с /order", nil
	}

	switch {
	case data == "order:back":
		return "", b.sendWithKeyboard(chatID, "Выберите категорию товара:", categoriesKeyboard("order:cat:"))
	case strings.HasPrefix(data, "order:cat:"):
		category, ok := findCategory(strings.TrimPrefix(data, "order:cat:"))
		if !ok {
			return "Категория не найдена", nil
		}
		return "", b.sendWithKeyboard(chatID,
			"Категория: "+category.Name+"\n\nВыберите товары для добавления в заказ:",
			itemsKeyboard(category))
	case strings.HasPrefix(data, "order:add:"):
		parts := strings.Split(data, ":")
		if len(parts) != 4 {
			return "Неверный формат данных товара", nil
		}
		category, ok := findCategory(parts[2])
		index, err := strconv.Atoi(parts[3])
		if !ok || err != nil || index < 0 || index >= len(category.Items) {
			return "Товар не найден", nil
		}
		item := category.Items[index]
		s.Items = append(s.Items, entity.OrderItem{Category: category.Key, Item: item.label(), Price: item.Price})
		s.Total = s.Total.Add(item.Price)
		return "Товар добавлен: " + item.Name, nil
	case data == "order:done":
		if len(s.Items) == 0 {
			return "Выберите хотя бы один товар!", nil
		}
		s.Step = stepName
		return "", b.sendText(chatID, fmt.Sprintf(
			"Вы выбрали следующие товары:\n%s\n\nОбщая сумма: %s руб.\n\nТеперь введите ваше имя:",
			itemsText(s.Items), s.Total.String(),
		))
	default:
		return "Неизвестная команда", nil
	}
}

func (b *Bot) cancelFromCallback(ctx context.Context, chatID int64, orderID string) (string, error) {
	order, err := b.orders.CancelOrder(ctx, orderID)
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return "Заказ не найден", nil
	case errors.Is(err, service.ErrInvalidStatus):
		return "", b.sendText(chatID, "Оплаченный заказ нельзя отменить. Обратитесь в поддержку.")
	case err != nil:
		b.logger.WithError(err).WithField("order_id", orderID).Error("bot order cancel failed")
		return "", b.sendText(chatID, textGenericError)
	}
	return "Заказ отменен", b.sendText(chatID, fmt.Sprintf("✅ Заказ #%s отменен.", shortID(order.ID)))
}

func (b *Bot) handlePreCheckout(ctx context.Context, q *tgbotapi.PreCheckoutQuery) error {
	answer := tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: q.ID, OK: true}

	order, err := b.orders.GetOrder(ctx, q.InvoicePayload)
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		answer.OK = false
		answer.ErrorMessage = "Заказ не найден"
	case err != nil:
		b.logger.WithError(err).WithField("order_id", q.InvoicePayload).Error("pre-checkout order lookup failed")
		answer.OK = false
		answer.ErrorMessage = "Произошла ошибка при обработке платежа"
	case order.IsPaid():
		answer.OK = false
		answer.ErrorMessage = "Заказ уже оплачен"
	}

	b.logger.WithFields(logrus.Fields{
		"order_id": q.InvoicePayload,
		"approved": answer.OK,
	}).Info("pre_checkout_answered")

	_, err = b.api.Request(answer)
	return err
}

func (b *Bot) handleSuccessfulPayment(ctx context.Context, m *tgbotapi.Message) error {
	chatID := m.Chat.ID
	payment := m.SuccessfulPayment

	raw, err := json.Marshal(m)
	if err == nil {
		_, err = b.payments.ProcessBotPayment(ctx, raw)
	}
	if err != nil {
		b.logger.WithError(err).WithField("order_id", payment.InvoicePayload).Error("bot payment apply failed")
		return b.sendText(chatID, "❌ Платеж был получен, но произошла ошибка при обновлении статуса заказа. Свяжитесь с поддержкой.")
	}

	amount := decimal.New(int64(payment.TotalAmount), -2)
	return b.sendText(chatID, fmt.Sprintf(
		"✅ Платеж успешно обработан!\n\n💳 Сумма: %s %s\n🧾 Номер платежа: %s\n📋 Заказ #%s\n\n🎉 Благодарим за оплату! Ваш заказ будет обработан в ближайшее время.",
		amount.StringFixed(2), payment.Currency, payment.TelegramPaymentChargeID, shortID(payment.InvoicePayload),
	))
}

func callbackChatID(q *tgbotapi.CallbackQuery) int64 {
	if q.Message != nil && q.Message.Chat != nil {
		return q.Message.Chat.ID
	}
	if q.From != nil {
		return q.From.ID
	}
	return 0
}

func categoriesKeyboard(prefix string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(menu))
	for _, category := range menu {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(category.Name, prefix+category.Key),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func itemsKeyboard(category menuCategory) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(category.Items)+2)
	for i, item := range category.Items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ "+item.label(), fmt.Sprintf("order:add:%s:%d", category.Key, i)),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Назад к категориям", "order:back")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Завершить выбор товаров", "order:done")),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func itemsText(items []entity.OrderItem) string {
	lines := make([]string, 0, len(items))
	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item.Item))
	}
	return strings.Join(lines, "\n")
}

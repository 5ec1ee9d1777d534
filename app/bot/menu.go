package bot

import (
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
)

type menuItem struct {
	Name  string
	Price decimal.Decimal
}

type menuCategory struct {
	Key   string
	Name  string
	Items []menuItem
}

var menu = []menuCategory{
	{
		Key:  "photosession",
		Name: "Фотосессии",
		Items: []menuItem{
			{Name: "Портретная съемка", Price: decimal.NewFromInt(5000)},
			{Name: "Семейная съемка", Price: decimal.NewFromInt(7000)},
		},
	},
	{
		Key:  "printing",
		Name: "Печать фотографий",
		Items: []menuItem{
			{Name: "Печать 10x15", Price: decimal.NewFromInt(100)},
			{Name: "Печать 20x30", Price: decimal.NewFromInt(300)},
		},
	},
	{
		Key:  "editing",
		Name: "Цифровое редактирование",
		Items: []menuItem{
			{Name: "Базовое редактирование", Price: decimal.NewFromInt(1000)},
			{Name: "Расширенное редактирование", Price: decimal.NewFromInt(2500)},
		},
	},
}

func findCategory(key string) (menuCategory, bool) {
	for _, category := range menu {
		if category.Key == key {
			return category, true
		}
	}
	return menuCategory{}, false
}

func (i menuItem) label() string {
	return i.Name + " - " + i.Price.String() + " руб."
}

var orderStatusNames = map[string]string{
	entity.OrderStatusPending:    "Ожидает обработки",
	entity.OrderStatusProcessing: "В обработке",
	entity.OrderStatusCompleted:  "Завершен",
	entity.OrderStatusCancelled:  "Отменен",
}

var paymentStatusNames = map[string]string{
	entity.PaymentStatusPending:  "Ожидает оплаты",
	entity.PaymentStatusPaid:     "Оплачен",
	entity.PaymentStatusFailed:   "Ошибка оплаты",
	entity.PaymentStatusRefunded: "Возврат",
}

func formatStatus(status string) string {
	if name, ok := orderStatusNames[status]; ok {
		return name
	}
	return status
}

func formatPaymentStatus(status string) string {
	if name, ok := paymentStatusNames[status]; ok {
		return name
	}
	return status
}

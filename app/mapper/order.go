package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"
)

func OrderToResponse(item *entity.Order) *types.Order {
	if item == nil {
		return nil
	}

	items := make([]types.OrderItem, 0, len(item.Details.Items))
	for _, line := range item.Details.Items {
		items = append(items, types.OrderItem{
			Category: line.Category,
			Item:     line.Item,
			Price:    line.Price,
		})
	}

	return &types.Order{
		ID:            item.ID,
		UserID:        item.UserID,
		Status:        item.Status,
		PaymentStatus: item.PaymentStatus,
		PaymentMethod: item.PaymentMethod,
		TotalAmount:   item.TotalAmount,
		OrderDetails: types.OrderDetails{
			Items: items,
			ContactInfo: types.ContactInfo{
				Name:  item.Details.ContactInfo.Name,
				Email: item.Details.ContactInfo.Email,
				Phone: item.Details.ContactInfo.Phone,
			},
		},
		CreatedAt: formatTime(item.CreatedAt),
		UpdatedAt: formatTime(item.UpdatedAt),
	}
}

func OrdersToResponse(items []*entity.Order) []*types.Order {
	result := make([]*types.Order, 0, len(items))
	for _, item := range items {
		result = append(result, OrderToResponse(item))
	}
	return result
}

func OrderItemsFromRequest(items []types.OrderItem) []entity.OrderItem {
	result := make([]entity.OrderItem, 0, len(items))
	for _, item := range items {
		result = append(result, entity.OrderItem{
			Category: item.Category,
			Item:     item.Item,
			Price:    item.Price,
		})
	}
	return result
}

func UserToResponse(item *entity.User) *types.User {
	if item == nil {
		return nil
	}
	return &types.User{
		ID:        item.ID,
		Email:     item.Email,
		FullName:  item.FullName,
		CreatedAt: formatTime(item.CreatedAt),
	}
}

func PaymentEventsToResponse(items []*entity.PaymentEvent) []*types.PaymentEvent {
	result := make([]*types.PaymentEvent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		result = append(result, &types.PaymentEvent{
			ID:                item.ID,
			OrderID:           item.OrderID,
			Provider:          item.Provider,
			EventType:         item.EventType,
			OldPaymentStatus:  derefString(item.OldPaymentStatus),
			NewPaymentStatus:  item.NewPaymentStatus,
			ProviderPaymentID: derefString(item.ProviderPaymentID),
			Payload:           item.PayloadJSON,
			CreatedAt:         formatTime(item.CreatedAt),
		})
	}
	return result
}

func DashboardToResponse(item *service.Dashboard) *types.DashboardResponse {
	users := make([]*types.User, 0, len(item.RecentUsers))
	for _, user := range item.RecentUsers {
		users = append(users, UserToResponse(user))
	}

	return &types.DashboardResponse{
		Success: true,
		Stats: types.DashboardStats{
			TotalOrders:   item.Stats.Total,
			PendingOrders: item.Stats.Pending,
			PaidOrders:    item.Stats.Paid,
			FailedOrders:  item.Stats.Failed,
			Revenue:       item.Stats.Revenue,
			TotalUsers:    item.TotalUsers,
		},
		RecentOrders: OrdersToResponse(item.RecentOrders),
		RecentUsers:  users,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package services

import "github.com/yeremiapane/food-delivery-app/models"

// Notifier receives order events after they have been committed.
// Implementations must not block for long; they run on the request path.
type Notifier interface {
	OrderCreated(order models.Order)
	OrderStatusChanged(order models.Order, previous models.OrderStatus)
}

type NopNotifier struct{}

func (NopNotifier) OrderCreated(models.Order)                            {}
func (NopNotifier) OrderStatusChanged(models.Order, models.OrderStatus) {}

package services

import (
	"context"

	"github.com/yeremiapane/food-delivery-app/models"
)

// FaultInjector lets test harnesses abort order creation after every line
// item has been reserved. Production wiring leaves it nil.
type FaultInjector interface {
	AfterReservation(ctx context.Context, order *models.Order) error
}

type simulatedFailureKey struct{}

// WithSimulatedFailure marks ctx so that RequestFaultInjector fails the
// order being created under it.
func WithSimulatedFailure(ctx context.Context) context.Context {
	return context.WithValue(ctx, simulatedFailureKey{}, true)
}

// RequestFaultInjector fails orders whose context was marked with
// WithSimulatedFailure. Only wired when the process runs in test mode.
type RequestFaultInjector struct{}

func (RequestFaultInjector) AfterReservation(ctx context.Context, order *models.Order) error {
	if marked, _ := ctx.Value(simulatedFailureKey{}).(bool); marked {
		return &PersistenceError{Op: "order " + order.OrderNumber, Err: ErrForcedFailure}
	}
	return nil
}

// FaultFunc adapts a plain function to FaultInjector.
type FaultFunc func(ctx context.Context, order *models.Order) error

func (f FaultFunc) AfterReservation(ctx context.Context, order *models.Order) error {
	return f(ctx, order)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/food-delivery-app/models"
)

func statusPtr(s models.OrderStatus) *models.OrderStatus { return &s }

func trackingCount(t *testing.T, f *fixture, orderID uint) int {
	t.Helper()
	events, err := NewTrackingLog().History(f.db, orderID)
	require.NoError(t, err)
	return len(events)
}

func TestUpdateStatus_ForwardChainAppendsOneEventPerChange(t *testing.T) {
	f := newFixture(t)
	item := f.addMenuItem(t, 0, "Sate Ayam", "12.99", 3)
	conf := f.placeOrder(t, OrderItemRequest{MenuItemID: item.ID, Quantity: 1})
	notifier := &recordingNotifier{}
	delivered := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	u := NewStatusUpdater(f.db, WithNotifier(notifier), WithLogger(quietLogger()),
		WithClock(func() time.Time { return delivered }))
	ctx := context.Background()

	steps := []models.OrderStatus{
		models.OrderStatusPreparing,
		models.OrderStatusReadyForPickup,
		models.OrderStatusOutForDelivery,
		models.OrderStatusDelivered,
	}
	for _, s := range steps {
		order, err := u.UpdateStatus(ctx, conf.Order.ID, StatusUpdate{Status: statusPtr(s), Location: "Jl. Dago"})
		require.NoError(t, err)
		assert.Equal(t, s, order.Status)
	}

	order, err := NewOrderProcessor(f.db).GetOrder(ctx, conf.Order.ID)
	require.NoError(t, err)
	require.NotNil(t, order.ActualDeliveryTime)
	assert.True(t, order.ActualDeliveryTime.Equal(delivered))
	// PENDING + CONFIRMED + four updates
	require.Len(t, order.Tracking, 6)
	assert.Equal(t, models.OrderStatusDelivered, order.Tracking[5].Status)
	assert.Equal(t, "Jl. Dago", order.Tracking[5].Location)

	require.Len(t, notifier.changed, 4)
	assert.Equal(t, models.OrderStatusConfirmed, notifier.changed[0].Previous)
}

func TestUpdateStatus_NoOpAppendsNothing(t *testing.T) {
	f := newFixture(t)
	item := f.addMenuItem(t, 0, "Sate Ayam", "12.99", 3)
	conf := f.placeOrder(t, OrderItemRequest{MenuItemID: item.ID, Quantity: 1})
	notifier := &recordingNotifier{}
	u := NewStatusUpdater(f.db, WithNotifier(notifier), WithLogger(quietLogger()))

	instructions := "leave at the gate"
	order, err := u.UpdateStatus(context.Background(), conf.Order.ID, StatusUpdate{
		Status:              statusPtr(models.OrderStatusConfirmed),
		SpecialInstructions: &instructions,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, instructions, order.SpecialInstructions)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, trackingCount(t, f, conf.Order.ID))
	assert.Empty(t, notifier.changed)
}

func TestUpdateStatus_SkipsForwardButNeverBackward(t *testing.T) {
	f := newFixture(t)
	item := f.addMenuItem(t, 0, "Sate Ayam", "12.99", 3)
	conf := f.placeOrder(t, OrderItemRequest{MenuItemID: item.ID, Quantity: 1})
	u := NewStatusUpdater(f.db, WithLogger(quietLogger()))
	ctx := context.Background()

	_, err := u.UpdateStatus(ctx, conf.Order.ID, StatusUpdate{Status: statusPtr(models.OrderStatusReadyForPickup)})
	require.NoError(t, err)

	_, err = u.UpdateStatus(ctx, conf.Order.ID, StatusUpdate{Status: statusPtr(models.OrderStatusPreparing)})
	var transitionErr *StatusTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.OrderStatusReadyForPickup, transitionErr.From)
	assert.Equal(t, models.OrderStatusPreparing, transitionErr.To)
	assert.Equal(t, 3, trackingCount(t, f, conf.Order.ID))

	_, err = u.UpdateStatus(ctx, conf.Order.ID, StatusUpdate{Status: statusPtr("READY")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatus_TerminalGuard(t *testing.T) {
	f := newFixture(t)
	item := f.addMenuItem(t, 0, "Sate Ayam", "12.99", 3)
	u := NewStatusUpdater(f.db, WithLogger(quietLogger()))
	ctx := context.Background()

	delivered := f.placeOrder(t, OrderItemRequest{MenuItemID: item.ID, Quantity: 1})
	_, err := u.UpdateStatus(ctx, delivered.Order.ID, StatusUpdate{Status: statusPtr(models.OrderStatusDelivered)})
	require.NoError(t, err)

	cancelled := f.placeOrder(t, OrderItemRequest{MenuItemID: item.ID, Quantity: 1})
	_, err = u.Cancel(ctx, cancelled.Order.ID, "")
	require.NoError(t, err)

	note := "too late"
	attempts := []StatusUpdate{
		{Status: statusPtr(models.OrderStatusCancelled)},
		{Status: statusPtr(models.OrderStatusPreparing)},
		{Status: statusPtr(models.OrderStatusDelivered)},
		{SpecialInstructions: &note},
	}
	for _, id := range []uint{delivered.Order.ID, cancelled.Order.ID} {
		before := trackingCount(t, f, id)
		for _, upd := range attempts {
			_, err := u.UpdateStatus(ctx, id, upd)
			assert.ErrorIs(t, err, ErrStatusTransition)
		}
		_, err := u.Cancel(ctx, id, "")
		assert.ErrorIs(t, err, ErrStatusTransition)
		assert.Equal(t, before, trackingCount(t, f, id))
	}
}

func TestUpdateStatus_NotFoundAndEmpty(t *testing.T) {
	f := newFixture(t)
	u := NewStatusUpdater(f.db, WithLogger(quietLogger()))

	_, err := u.UpdateStatus(context.Background(), 999, StatusUpdate{Status: statusPtr(models.OrderStatusPreparing)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = u.Cancel(context.Background(), 999, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = u.UpdateStatus(context.Background(), 1, StatusUpdate{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatus_AssignsDeliveryPerson(t *testing.T) {
	f := newFixture(t)
	item := f.addMenuItem(t, 0, "Sate Ayam", "12.99", 3)
	conf := f.placeOrder(t, OrderItemRequest{MenuItemID: item.ID, Quantity: 1})
	u := NewStatusUpdater(f.db, WithLogger(quietLogger()))

	order, err := u.UpdateStatus(context.Background(), conf.Order.ID, StatusUpdate{
		Status:           statusPtr(models.OrderStatusOutForDelivery),
		DeliveryPersonID: &f.courier.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, order.DeliveryPersonID)
	assert.Equal(t, f.courier.ID, *order.DeliveryPersonID)

	unknown := uint(999)
	_, err = u.UpdateStatus(context.Background(), conf.Order.ID, StatusUpdate{DeliveryPersonID: &unknown})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCancel_RestocksAndRefunds(t *testing.T) {
	f := newFixture(t)
	sate := f.addMenuItem(t, 0, "Sate Ayam", "12.99", 5)
	teh := f.addMenuItem(t, 0, "Es Teh", "2.50", 5)
	conf := f.placeOrder(t,
		OrderItemRequest{MenuItemID: sate.ID, Quantity: 2},
		OrderItemRequest{MenuItemID: teh.ID, Quantity: 3},
	)
	assert.Equal(t, 3, f.stock(t, sate.ID))
	assert.Equal(t, 2, f.stock(t, teh.ID))

	notifier := &recordingNotifier{}
	u := NewStatusUpdater(f.db, WithNotifier(notifier), WithLogger(quietLogger()))
	order, err := u.Cancel(context.Background(), conf.Order.ID, "")
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	require.NotNil(t, order.Payment)
	assert.Equal(t, models.PaymentStatusRefunded, order.Payment.Status)
	assert.Equal(t, 5, f.stock(t, sate.ID))
	assert.Equal(t, 5, f.stock(t, teh.ID))

	events, err := NewTrackingLog().History(f.db, conf.Order.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, models.OrderStatusCancelled, events[2].Status)
	assert.Equal(t, "cancelled by user", events[2].Notes)

	require.Len(t, notifier.changed, 1)
	assert.Equal(t, models.OrderStatusConfirmed, notifier.changed[0].Previous)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTrackingRowsAreAppendOnly(t *testing.T) {
	f := newFixture(t)
	item := f.addMenuItem(t, 0, "Sate Ayam", "12.99", 3)
	conf := f.placeOrder(t, OrderItemRequest{MenuItemID: item.ID, Quantity: 1})

	err := f.db.Model(&models.OrderTracking{}).Where("order_id = ?", conf.Order.ID).
		Update("notes", "rewritten").Error
	assert.Error(t, err)

	err = f.db.Where("order_id = ?", conf.Order.ID).Delete(&models.OrderTracking{}).Error
	assert.Error(t, err)

	assert.Equal(t, 2, trackingCount(t, f, conf.Order.ID))
}

package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/food-delivery-app/models"
)

type TrackingEvent struct {
	Status    models.OrderStatus
	Location  string
	Notes     string
	Latitude  *float64
	Longitude *float64
}

// TrackingLog appends order status events. There is deliberately no update
// or delete path.
type TrackingLog struct {
	now func() time.Time
}

func NewTrackingLog() *TrackingLog {
	return &TrackingLog{now: time.Now}
}

func (l *TrackingLog) Append(tx *gorm.DB, orderID uint, ev TrackingEvent) (*models.OrderTracking, error) {
	if !ev.Status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status " + string(ev.Status)}
	}
	row := models.OrderTracking{
		OrderID:   orderID,
		Status:    ev.Status,
		Location:  ev.Location,
		Notes:     ev.Notes,
		Latitude:  ev.Latitude,
		Longitude: ev.Longitude,
		CreatedAt: l.now(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, persistence("append tracking event", err)
	}
	return &row, nil
}

// History returns the events of an order oldest first. Insertion order is
// the id order, which stays stable even when timestamps collide.
func (l *TrackingLog) History(db *gorm.DB, orderID uint) ([]models.OrderTracking, error) {
	var events []models.OrderTracking
	if err := db.Where("order_id = ?", orderID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, persistence("load tracking history", err)
	}
	return events, nil
}

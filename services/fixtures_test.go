package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/food-delivery-app/config"
	"github.com/yeremiapane/food-delivery-app/database"
	"github.com/yeremiapane/food-delivery-app/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// setupTestDB opens a private in-memory database. A single connection makes
// concurrent transactions queue instead of failing with SQLITE_BUSY.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := config.InitDB(config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name),
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, quietLogger()))
	t.Cleanup(func() { _ = config.CloseDB(db) })
	return db
}

type fixture struct {
	db         *gorm.DB
	user       models.User
	restaurant models.Restaurant
	address    models.Address
	courier    models.DeliveryPerson
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: setupTestDB(t)}

	f.user = models.User{Name: "Dina", Email: "dina@example.com", Password: "x", Role: models.RoleCustomer}
	require.NoError(t, f.db.Create(&f.user).Error)

	f.restaurant = models.Restaurant{
		Name:            "Warung Sate",
		DeliveryFee:     decimal.RequireFromString("3.99"),
		TaxRate:         decimal.RequireFromString("0.04"),
		DeliveryMinutes: 30,
		IsActive:        true,
	}
	require.NoError(t, f.db.Create(&f.restaurant).Error)

	f.address = models.Address{UserID: f.user.ID, Line1: "Jl. Merdeka 1", City: "Bandung"}
	require.NoError(t, f.db.Create(&f.address).Error)

	f.courier = models.DeliveryPerson{Name: "Rudi", Vehicle: "motorbike", IsAvailable: true}
	require.NoError(t, f.db.Create(&f.courier).Error)
	return f
}

func (f *fixture) addMenuItem(t *testing.T, id uint, name, price string, stock int) models.MenuItem {
	t.Helper()
	item := models.MenuItem{
		ID:           id,
		RestaurantID: f.restaurant.ID,
		Name:         name,
		Category:     "mains",
		Price:        decimal.RequireFromString(price),
		IsAvailable:  true,
		Stock:        stock,
	}
	require.NoError(t, f.db.Create(&item).Error)
	return item
}

func (f *fixture) request(items ...OrderItemRequest) CreateOrderRequest {
	return CreateOrderRequest{
		UserID:        f.user.ID,
		RestaurantID:  f.restaurant.ID,
		AddressID:     f.address.ID,
		Items:         items,
		PaymentMethod: models.PaymentMethodCreditCard,
	}
}

func (f *fixture) stock(t *testing.T, menuItemID uint) int {
	t.Helper()
	n, err := NewInventoryLedger().Stock(f.db, menuItemID)
	require.NoError(t, err)
	return n
}

// placeOrder creates a CONFIRMED order through the processor.
func (f *fixture) placeOrder(t *testing.T, items ...OrderItemRequest) *OrderConfirmation {
	t.Helper()
	conf, err := NewOrderProcessor(f.db, WithLogger(quietLogger())).CreateOrder(context.Background(), f.request(items...))
	require.NoError(t, err)
	return conf
}

type storeSnapshot struct {
	Orders   int64
	Items    int64
	Payments int64
	Tracking int64
	Stock    map[uint]int
}

func takeSnapshot(t *testing.T, db *gorm.DB) storeSnapshot {
	t.Helper()
	var s storeSnapshot
	require.NoError(t, db.Model(&models.Order{}).Count(&s.Orders).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&s.Items).Error)
	require.NoError(t, db.Model(&models.Payment{}).Count(&s.Payments).Error)
	require.NoError(t, db.Model(&models.OrderTracking{}).Count(&s.Tracking).Error)

	var items []models.MenuItem
	require.NoError(t, db.Select("id", "stock").Find(&items).Error)
	s.Stock = make(map[uint]int, len(items))
	for _, item := range items {
		s.Stock[item.ID] = item.Stock
	}
	return s
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type statusChange struct {
	Order    models.Order
	Previous models.OrderStatus
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []models.Order
	changed []statusChange
}

func (n *recordingNotifier) OrderCreated(order models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, order)
}

func (n *recordingNotifier) OrderStatusChanged(order models.Order, previous models.OrderStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, statusChange{Order: order, Previous: previous})
}

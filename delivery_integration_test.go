package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yeremiapane/food-delivery-app/config"
	"github.com/yeremiapane/food-delivery-app/database"
	"github.com/yeremiapane/food-delivery-app/kds"
	"github.com/yeremiapane/food-delivery-app/models"
	"github.com/yeremiapane/food-delivery-app/router"
	"github.com/yeremiapane/food-delivery-app/services"
	"github.com/yeremiapane/food-delivery-app/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := utils.InitLogger("error", "text"); err != nil {
		panic(err)
	}
	utils.Logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	t          *testing.T
	db         *gorm.DB
	router     *gin.Engine
	customer   models.User
	neighbour  models.User
	restaurant models.Restaurant
	address    models.Address
	sate       models.MenuItem
	teh        models.MenuItem
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.InitDB(config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name),
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, utils.Logger))
	t.Cleanup(func() { _ = config.CloseDB(db) })
	return db
}

func newTestEnv(t *testing.T, appEnv string) *testEnv {
	t.Helper()
	cfg := &config.Config{
		AppEnv:         appEnv,
		JWTSecret:      "integration-secret",
		JWTTTL:         time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		CORSOrigins:    []string{"*"},
	}
	db := setupTestDB(t)
	env := &testEnv{t: t, db: db, router: router.SetupRouter(cfg, db, kds.NewHub(utils.Logger))}
	env.seed()
	return env
}

func (e *testEnv) seed() {
	t := e.t
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	e.customer = models.User{Name: "Dina", Email: "dina@example.com", Password: string(hash), Role: models.RoleCustomer}
	require.NoError(t, e.db.Create(&e.customer).Error)
	e.neighbour = models.User{Name: "Eko", Email: "eko@example.com", Password: string(hash), Role: models.RoleCustomer}
	require.NoError(t, e.db.Create(&e.neighbour).Error)

	staff := models.User{Name: "Budi", Email: "budi@example.com", Password: string(hash), Role: models.RoleStaff}
	require.NoError(t, e.db.Create(&staff).Error)

	e.restaurant = models.Restaurant{
		Name:            "Warung Sate",
		DeliveryFee:     decimal.RequireFromString("3.99"),
		TaxRate:         decimal.RequireFromString("0.04"),
		DeliveryMinutes: 30,
		IsActive:        true,
	}
	require.NoError(t, e.db.Create(&e.restaurant).Error)

	e.address = models.Address{UserID: e.customer.ID, Line1: "Jl. Merdeka 1", City: "Bandung"}
	require.NoError(t, e.db.Create(&e.address).Error)

	e.sate = models.MenuItem{RestaurantID: e.restaurant.ID, Name: "Sate Ayam", Category: "mains",
		Price: decimal.RequireFromString("12.99"), IsAvailable: true, Stock: 5}
	e.teh = models.MenuItem{RestaurantID: e.restaurant.ID, Name: "Es Teh", Category: "drinks",
		Price: decimal.RequireFromString("2.50"), IsAvailable: true, Stock: 1}
	require.NoError(t, e.db.Create(&e.sate).Error)
	require.NoError(t, e.db.Create(&e.teh).Error)
}

func (e *testEnv) do(method, path string, body interface{}, token string) (int, apiResponse) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

const testPassword = "kitchen-pass"

func (e *testEnv) login(email, wantRole string) string {
	e.t.Helper()
	code, resp := e.do(http.MethodPost, "/login", gin.H{"email": email, "password": testPassword}, "")
	require.Equal(e.t, http.StatusOK, code, resp.Message)
	var data struct {
		Token string `json:"token"`
		Role  string `json:"user_role"`
	}
	require.NoError(e.t, json.Unmarshal(resp.Data, &data))
	assert.Equal(e.t, wantRole, data.Role)
	return data.Token
}

func (e *testEnv) loginStaff() string {
	return e.login("budi@example.com", models.RoleStaff)
}

func (e *testEnv) loginCustomer() string {
	return e.login("dina@example.com", models.RoleCustomer)
}

func (e *testEnv) orderBody(items ...gin.H) gin.H {
	return gin.H{
		"restaurant_id":  e.restaurant.ID,
		"address_id":     e.address.ID,
		"payment_method": models.PaymentMethodCreditCard,
		"items":          items,
	}
}

func (e *testEnv) createOrder(body gin.H, token string) services.OrderConfirmation {
	e.t.Helper()
	code, resp := e.do(http.MethodPost, "/orders", body, token)
	require.Equal(e.t, http.StatusCreated, code, resp.Message)
	var conf services.OrderConfirmation
	require.NoError(e.t, json.Unmarshal(resp.Data, &conf))
	return conf
}

func (e *testEnv) stock(id uint) int {
	e.t.Helper()
	var item models.MenuItem
	require.NoError(e.t, e.db.First(&item, id).Error)
	return item.Stock
}

func TestEndToEndIntegration(t *testing.T) {
	env := newTestEnv(t, config.EnvDevelopment)
	token := env.loginStaff()
	customer := env.loginCustomer()

	// 1. Place an order
	conf := env.createOrder(env.orderBody(gin.H{"menu_item_id": env.sate.ID, "quantity": 2}), customer)
	assert.Equal(t, models.OrderStatusConfirmed, conf.Order.Status)
	assert.Equal(t, env.customer.ID, conf.Order.UserID)
	assert.True(t, decimal.RequireFromString("31.01").Equal(conf.Order.TotalAmount), conf.Order.TotalAmount.String())
	assert.Equal(t, models.PaymentStatusCompleted, conf.Payment.Status)
	assert.True(t, strings.HasPrefix(conf.Order.OrderNumber, "ORD-"))
	assert.Equal(t, 3, env.stock(env.sate.ID))
	orderPath := fmt.Sprintf("/orders/%d", conf.Order.ID)

	// 2. Detail, tracking and payment
	code, resp := env.do(http.MethodGet, orderPath, nil, customer)
	require.Equal(t, http.StatusOK, code)
	var order models.Order
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	require.Len(t, order.Items, 1)
	require.Len(t, order.Tracking, 2)

	code, resp = env.do(http.MethodGet, orderPath+"/payment", nil, customer)
	require.Equal(t, http.StatusOK, code)
	var payment models.Payment
	require.NoError(t, json.Unmarshal(resp.Data, &payment))
	assert.Equal(t, conf.Payment.TransactionID, payment.TransactionID)

	// 3. Kitchen moves the order forward
	adminPath := fmt.Sprintf("/admin/orders/%d", conf.Order.ID)
	code, resp = env.do(http.MethodPatch, adminPath, gin.H{"status": models.OrderStatusPreparing}, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp = env.do(http.MethodPatch, adminPath, gin.H{"status": models.OrderStatusPreparing, "notes": "on the grill"}, token)
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = env.do(http.MethodPatch, adminPath, gin.H{"status": models.OrderStatusConfirmed}, token)
	assert.Equal(t, http.StatusConflict, code, resp.Message)

	code, resp = env.do(http.MethodPatch, adminPath, gin.H{"status": "COOKING"}, token)
	assert.Equal(t, http.StatusBadRequest, code, resp.Message)

	code, resp = env.do(http.MethodGet, orderPath+"/tracking", nil, customer)
	require.Equal(t, http.StatusOK, code)
	var events []models.OrderTracking
	require.NoError(t, json.Unmarshal(resp.Data, &events))
	require.Len(t, events, 3)
	assert.Equal(t, models.OrderStatusPreparing, events[2].Status)
	assert.Equal(t, "on the grill", events[2].Notes)

	// 4. Cancel restocks, a second cancel conflicts
	code, resp = env.do(http.MethodDelete, orderPath+"?reason=changed+mind", nil, customer)
	require.Equal(t, http.StatusOK, code, resp.Message)
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, 5, env.stock(env.sate.ID))

	code, _ = env.do(http.MethodDelete, orderPath, nil, customer)
	assert.Equal(t, http.StatusConflict, code)

	// 5. Staff listing
	code, resp = env.do(http.MethodGet, "/admin/orders?status=CANCELLED", nil, token)
	require.Equal(t, http.StatusOK, code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(resp.Data, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, conf.Order.ID, orders[0].ID)
}

func TestCreateOrder_RejectionsLeaveStateUntouched(t *testing.T) {
	env := newTestEnv(t, config.EnvDevelopment)
	customer := env.loginCustomer()

	code, resp := env.do(http.MethodPost, "/orders",
		env.orderBody(
			gin.H{"menu_item_id": env.sate.ID, "quantity": 1},
			gin.H{"menu_item_id": env.teh.ID, "quantity": 2},
		), customer)
	assert.Equal(t, http.StatusConflict, code, resp.Message)
	assert.Equal(t, 5, env.stock(env.sate.ID))
	assert.Equal(t, 1, env.stock(env.teh.ID))

	code, _ = env.do(http.MethodPost, "/orders",
		env.orderBody(gin.H{"menu_item_id": 999, "quantity": 1}), customer)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(http.MethodPost, "/orders", gin.H{"restaurant_id": env.restaurant.ID}, customer)
	assert.Equal(t, http.StatusBadRequest, code)

	body := env.orderBody(gin.H{"menu_item_id": env.sate.ID, "quantity": 1})
	body["simulate_failure"] = true
	code, _ = env.do(http.MethodPost, "/orders", body, customer)
	assert.Equal(t, http.StatusBadRequest, code)

	var count int64
	require.NoError(t, env.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)

	code, _ = env.do(http.MethodGet, "/orders/999", nil, customer)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = env.do(http.MethodGet, "/orders/abc", nil, customer)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateOrder_SimulatedFailureInTestMode(t *testing.T) {
	env := newTestEnv(t, config.EnvTest)
	customer := env.loginCustomer()

	body := env.orderBody(gin.H{"menu_item_id": env.sate.ID, "quantity": 2})
	body["simulate_failure"] = true
	code, resp := env.do(http.MethodPost, "/orders", body, customer)
	assert.Equal(t, http.StatusInternalServerError, code, resp.Message)
	assert.Equal(t, 5, env.stock(env.sate.ID))

	var orders, payments, tracking int64
	require.NoError(t, env.db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, env.db.Model(&models.Payment{}).Count(&payments).Error)
	require.NoError(t, env.db.Model(&models.OrderTracking{}).Count(&tracking).Error)
	assert.Zero(t, orders+payments+tracking)

	conf := env.createOrder(env.orderBody(gin.H{"menu_item_id": env.sate.ID, "quantity": 2}), customer)
	assert.Equal(t, models.OrderStatusConfirmed, conf.Order.Status)
}

func TestRegisterLoginProfile(t *testing.T) {
	env := newTestEnv(t, config.EnvDevelopment)

	code, resp := env.do(http.MethodPost, "/register",
		gin.H{"name": "Rina", "email": "Rina@Example.com", "password": "secret-pass", "role": "courier"}, "")
	require.Equal(t, http.StatusCreated, code, resp.Message)

	code, _ = env.do(http.MethodPost, "/register",
		gin.H{"name": "Rina", "email": "rina@example.com", "password": "secret-pass"}, "")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = env.do(http.MethodPost, "/register",
		gin.H{"name": "Eve", "email": "eve@example.com", "password": "secret-pass", "role": "admin"}, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = env.do(http.MethodPost, "/login", gin.H{"email": "rina@example.com", "password": "secret-pass"}, "")
	require.Equal(t, http.StatusOK, code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &login))

	code, resp = env.do(http.MethodGet, "/admin/profile", nil, login.Token)
	require.Equal(t, http.StatusOK, code)
	var user models.User
	require.NoError(t, json.Unmarshal(resp.Data, &user))
	assert.Equal(t, "rina@example.com", user.Email)
	assert.Empty(t, user.Password)

	// couriers may not restock or list every order
	code, _ = env.do(http.MethodGet, "/admin/orders", nil, login.Token)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRestockThroughAPI(t *testing.T) {
	env := newTestEnv(t, config.EnvDevelopment)
	token := env.loginStaff()

	code, resp := env.do(http.MethodPost, fmt.Sprintf("/admin/menus/%d/restock", env.teh.ID), gin.H{"quantity": 4}, token)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, 5, env.stock(env.teh.ID))

	code, resp = env.do(http.MethodGet, fmt.Sprintf("/menus?restaurant_id=%d&category=drinks", env.restaurant.ID), nil, "")
	require.Equal(t, http.StatusOK, code)
	var items []models.MenuItem
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Es Teh", items[0].Name)
}

func TestOrderRoutes_RequireTokenAndOwnership(t *testing.T) {
	env := newTestEnv(t, config.EnvProduction)
	customer := env.loginCustomer()
	neighbour := env.login("eko@example.com", models.RoleCustomer)
	staff := env.loginStaff()

	item := gin.H{"menu_item_id": env.sate.ID, "quantity": 1}
	conf := env.createOrder(env.orderBody(item), customer)
	orderPath := fmt.Sprintf("/orders/%d", conf.Order.ID)

	// no token
	code, _ := env.do(http.MethodPost, "/orders", env.orderBody(item), "")
	assert.Equal(t, http.StatusUnauthorized, code)
	for _, path := range []string{orderPath, orderPath + "/tracking", orderPath + "/payment"} {
		code, _ = env.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}
	code, _ = env.do(http.MethodDelete, orderPath, nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	// another customer
	for _, path := range []string{orderPath, orderPath + "/tracking", orderPath + "/payment"} {
		code, _ = env.do(http.MethodGet, path, nil, neighbour)
		assert.Equal(t, http.StatusForbidden, code, path)
	}
	code, _ = env.do(http.MethodDelete, orderPath, nil, neighbour)
	assert.Equal(t, http.StatusForbidden, code)

	onBehalf := env.orderBody(item)
	onBehalf["user_id"] = env.customer.ID
	code, _ = env.do(http.MethodPost, "/orders", onBehalf, neighbour)
	assert.Equal(t, http.StatusForbidden, code)

	var order models.Order
	require.NoError(t, env.db.First(&order, conf.Order.ID).Error)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, 4, env.stock(env.sate.ID))
	var orders int64
	require.NoError(t, env.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)

	// staff may read any order and place one for a customer
	code, _ = env.do(http.MethodGet, orderPath, nil, staff)
	assert.Equal(t, http.StatusOK, code)
	placed := env.createOrder(onBehalf, staff)
	assert.Equal(t, env.customer.ID, placed.Order.UserID)

	// and the owner can still cancel
	code, _ = env.do(http.MethodDelete, orderPath, nil, customer)
	assert.Equal(t, http.StatusOK, code)
}

package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/food-delivery-app/models"
	"github.com/yeremiapane/food-delivery-app/services"
	"github.com/yeremiapane/food-delivery-app/utils"
)

type OrderController struct {
	processor *services.OrderProcessor
	updater   *services.StatusUpdater
	testMode  bool
}

func NewOrderController(processor *services.OrderProcessor, updater *services.StatusUpdater, testMode bool) *OrderController {
	return &OrderController{processor: processor, updater: updater, testMode: testMode}
}

type orderItemBody struct {
	MenuItemID uint             `json:"menu_item_id" binding:"required"`
	Quantity   int              `json:"quantity" binding:"required,gt=0"`
	Price      *decimal.Decimal `json:"price"`
}

type createOrderBody struct {
	UserID              uint                 `json:"user_id"`
	RestaurantID        uint                 `json:"restaurant_id" binding:"required"`
	AddressID           uint                 `json:"address_id" binding:"required"`
	Items               []orderItemBody      `json:"items" binding:"required,min=1,dive"`
	PaymentMethod       models.PaymentMethod `json:"payment_method" binding:"required,oneof=CREDIT_CARD DEBIT_CARD CASH DIGITAL_WALLET"`
	SpecialInstructions string               `json:"special_instructions" binding:"max=500"`
	DeliveryFee         *decimal.Decimal     `json:"delivery_fee"`
	Tax                 *decimal.Decimal     `json:"tax"`
	Discount            *decimal.Decimal     `json:"discount"`
	SimulateFailure     bool                 `json:"simulate_failure"`
}

func (b createOrderBody) toRequest() services.CreateOrderRequest {
	items := make([]services.OrderItemRequest, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, services.OrderItemRequest{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Price:      it.Price,
		})
	}
	return services.CreateOrderRequest{
		UserID:              b.UserID,
		RestaurantID:        b.RestaurantID,
		AddressID:           b.AddressID,
		Items:               items,
		PaymentMethod:       b.PaymentMethod,
		SpecialInstructions: b.SpecialInstructions,
		DeliveryFee:         b.DeliveryFee,
		Tax:                 b.Tax,
		Discount:            b.Discount,
	}
}

// CreateOrder -> POST /orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var body createOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	// customers order for themselves; staff may place an order on behalf of a user
	caller := c.GetUint("user_id")
	switch {
	case body.UserID == 0:
		body.UserID = caller
	case body.UserID != caller && !actsForAnyUser(c):
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	ctx := c.Request.Context()
	if body.SimulateFailure {
		if !oc.testMode {
			respondServiceError(c, &services.ValidationError{Field: "simulate_failure", Reason: "only accepted in test mode"})
			return
		}
		ctx = services.WithSimulatedFailure(ctx)
	}

	confirmation, err := oc.processor.CreateOrder(ctx, body.toRequest())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", confirmation)
}

// GetOrderByID -> order with items, payment and tracking
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	order, ok := authorizeOrder(c, oc.processor)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func (oc *OrderController) GetAllOrders(c *gin.Context) {
	filter := services.OrderFilter{Status: models.OrderStatus(c.Query("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		respondServiceError(c, &services.ValidationError{Field: "status", Reason: "unknown status " + string(filter.Status)})
		return
	}
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondServiceError(c, &services.ValidationError{Field: "user_id", Reason: "must be a number"})
			return
		}
		filter.UserID = uint(id)
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	orders, err := oc.processor.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) GetOrderTracking(c *gin.Context) {
	order, ok := authorizeOrder(c, oc.processor)
	if !ok {
		return
	}
	events, err := oc.processor.Tracking(c.Request.Context(), order.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order tracking", events)
}

type updateOrderBody struct {
	Status              *models.OrderStatus `json:"status"`
	SpecialInstructions *string             `json:"special_instructions" binding:"omitempty,max=500"`
	DeliveryPersonID    *uint               `json:"delivery_person_id"`
	Location            string              `json:"location" binding:"max=255"`
	Notes               string              `json:"notes" binding:"max=1000"`
	Latitude            *float64            `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude           *float64            `json:"longitude" binding:"omitempty,min=-180,max=180"`
}

// UpdateOrderStatus -> PATCH /admin/orders/:order_id
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseID(c, "order_id")
	if !ok {
		return
	}
	var body updateOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.updater.UpdateStatus(c.Request.Context(), id, services.StatusUpdate{
		Status:              body.Status,
		SpecialInstructions: body.SpecialInstructions,
		DeliveryPersonID:    body.DeliveryPersonID,
		Location:            body.Location,
		Notes:               body.Notes,
		Latitude:            body.Latitude,
		Longitude:           body.Longitude,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

// CancelOrder -> DELETE /orders/:order_id, the row is kept as CANCELLED
func (oc *OrderController) CancelOrder(c *gin.Context) {
	current, ok := authorizeOrder(c, oc.processor)
	if !ok {
		return
	}
	order, err := oc.updater.Cancel(c.Request.Context(), current.ID, c.Query("reason"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

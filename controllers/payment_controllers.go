package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/food-delivery-app/services"
	"github.com/yeremiapane/food-delivery-app/utils"
)

type PaymentController struct {
	payments  *services.PaymentService
	processor *services.OrderProcessor
}

func NewPaymentController(payments *services.PaymentService, processor *services.OrderProcessor) *PaymentController {
	return &PaymentController{payments: payments, processor: processor}
}

// GetOrderPayment -> GET /orders/:order_id/payment
func (pc *PaymentController) GetOrderPayment(c *gin.Context) {
	order, ok := authorizeOrder(c, pc.processor)
	if !ok {
		return
	}
	payment, err := pc.payments.GetPaymentByOrderID(c.Request.Context(), order.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment detail", payment)
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/food-delivery-app/models"
	"github.com/yeremiapane/food-delivery-app/services"
	"github.com/yeremiapane/food-delivery-app/utils"
)

type MenuController struct {
	DB        *gorm.DB
	inventory *services.InventoryLedger
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{DB: db, inventory: services.NewInventoryLedger()}
}

// GetAllMenus -> optional filters restaurant_id, category, available
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	q := mc.DB.WithContext(c.Request.Context()).Model(&models.MenuItem{})
	if v := c.Query("restaurant_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid restaurant_id"))
			return
		}
		q = q.Where("restaurant_id = ?", id)
	}
	if v := c.Query("category"); v != "" {
		q = q.Where("category = ?", v)
	}
	if c.Query("available") == "true" {
		q = q.Where("is_available = ? AND stock > 0", true)
	}

	var menus []models.MenuItem
	if err := q.Order("id ASC").Find(&menus).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", menus)
}

func (mc *MenuController) GetMenuByID(c *gin.Context) {
	id, ok := parseID(c, "menu_id")
	if !ok {
		return
	}
	var menu models.MenuItem
	err := mc.DB.WithContext(c.Request.Context()).First(&menu, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondServiceError(c, &services.NotFoundError{Entity: "menu item", ID: id})
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu detail", menu)
}

// RestockMenu -> POST /admin/menus/:menu_id/restock
func (mc *MenuController) RestockMenu(c *gin.Context) {
	id, ok := parseID(c, "menu_id")
	if !ok {
		return
	}
	var body struct {
		Quantity int `json:"quantity" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var stock int
	err := mc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := mc.inventory.Replenish(tx, id, body.Quantity); err != nil {
			return err
		}
		var err error
		stock, err = mc.inventory.Stock(tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondServiceError(c, &services.NotFoundError{Entity: "menu item", ID: id})
			return
		}
		respondServiceError(c, err)
		return
	}

	utils.Logger.WithFields(logrus.Fields{
		"menu_item_id": id,
		"added":        body.Quantity,
		"stock":        stock,
		"by":           c.GetUint("user_id"),
	}).Info("menu item restocked")
	utils.RespondJSON(c, http.StatusOK, "Menu restocked", gin.H{"menu_item_id": id, "stock": stock})
}

package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yeremiapane/food-delivery-app/models"
	"github.com/yeremiapane/food-delivery-app/utils"
)

type UserController struct {
	DB        *gorm.DB
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewUserController(db *gorm.DB, jwtSecret []byte, jwtTTL time.Duration) *UserController {
	return &UserController{DB: db, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

// Register creates an account. Self-registration only creates customers and couriers;
// staff and admin accounts are provisioned out of band.
func (uc *UserController) Register(c *gin.Context) {
	type request struct {
		Name     string `json:"name" binding:"required,max=255"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role" binding:"omitempty,oneof=customer courier"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleCustomer
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    strings.ToLower(req.Email),
		Password: string(hashed),
		Role:     req.Role,
	}
	if err := uc.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.RespondError(c, http.StatusConflict, errors.New("email already registered"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.Logger.WithField("role", user.Role).Infof("new user registered: %s", user.Email)
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{
		"user_id": user.ID,
	})
}

// Login user -> return JWT
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var user models.User
	if err := uc.DB.WithContext(c.Request.Context()).Where("email = ?", strings.ToLower(input.Email)).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	token, err := utils.GenerateToken(uc.jwtSecret, user.ID, user.Role, uc.jwtTTL)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":     token,
		"user_role": user.Role,
	})
}

// GetProfile -> the user behind the JWT
func (uc *UserController) GetProfile(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	var user models.User
	if err := uc.DB.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", user)
}

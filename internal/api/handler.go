// Package api exposes the kiosk operations over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/obhonesty/server/internal/models"
	"github.com/obhonesty/server/internal/orders"
	"github.com/obhonesty/server/internal/service"
)

// Handler contains the service and implements the API endpoints
type Handler struct {
	service service.Service
}

// NewHandler creates a new API handler
func NewHandler(service service.Service) *Handler {
	return &Handler{service: service}
}

// SetupRoutes configures all the API routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	apiGroup := router.Group("/api")
	{
		// Public routes
		apiGroup.POST("/auth/login", h.Login)
		apiGroup.POST("/users/register", h.RegisterGuest)
		apiGroup.GET("/users", h.Users)
		apiGroup.GET("/catalog", h.Catalog)
		apiGroup.GET("/availability", h.Availability)
		apiGroup.POST("/reload", h.Reload)

		// Routes requiring a login session
		authGroup := apiGroup.Group("")
		authGroup.Use(AuthMiddleware(h.service))
		{
			authGroup.POST("/auth/logout", h.Logout)
			authGroup.GET("/me", h.UserView)
			authGroup.POST("/orders", h.SubmitOrder)
			authGroup.POST("/orders/custom", h.SubmitCustomOrder)
			authGroup.POST("/signups/breakfast", h.SubmitBreakfastSignup)
			authGroup.POST("/signups/dinner", h.SubmitDinnerSignup)
			authGroup.POST("/checkout", h.StartCheckout)
			authGroup.GET("/checkout", h.CheckoutStatus)
			authGroup.DELETE("/checkout", h.CloseCheckout)
		}

		// Staff routes: the tablet lives behind the bar, the kiosk UI gates
		// these views locally.
		adminGroup := apiGroup.Group("/admin")
		{
			adminGroup.GET("/breakfast", h.BreakfastList)
			adminGroup.GET("/dinner", h.DinnerList)
			adminGroup.GET("/dinner/counts", h.DinnerCounts)
			adminGroup.GET("/tax-totals", h.TaxTotals)
			adminGroup.POST("/signups/dinner/late", h.SubmitLateDinnerSignup)
			adminGroup.PUT("/orders/:orderId/served", h.SetServed)
			adminGroup.POST("/users/:nickName/tab/paid", h.MarkTabPaid)
		}
	}
}

// nickFromContext returns the authenticated nick set by the middleware.
func nickFromContext(c *gin.Context) string {
	return c.MustGet("nickName").(string)
}

// handleServiceError maps service errors to HTTP error responses.
func handleServiceError(c *gin.Context, err error) {
	var dup *orders.DuplicateSignupError
	var validation *orders.ValidationError

	switch {
	case errors.Is(err, service.ErrUnknownUser):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "USER_NOT_FOUND",
			Message: "Unknown nick name",
		})
	case errors.Is(err, orders.ErrUnknownItem):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "ITEM_NOT_FOUND",
			Message: "Unknown catalog item",
		})
	case errors.Is(err, orders.ErrNickNameTaken):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:  "error",
			Code:    "NICK_NAME_TAKEN",
			Message: "This nick name is already taken",
		})
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:  "error",
			Code:    "DUPLICATE_SIGNUP",
			Message: dup.Error(),
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "VALIDATION_FAILED",
			Message: validation.Error(),
		})
	case errors.Is(err, service.ErrCheckoutIncomplete):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "VALIDATION_FAILED",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrNoSession):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Status:  "error",
			Code:    "SESSION_EXPIRED",
			Message: "No active login session",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: err.Error(),
		})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: err.Error(),
	})
}

// Login handles the login endpoint
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout closes the kiosk session
func (h *Handler) Logout(c *gin.Context) {
	h.service.Logout(nickFromContext(c))
	c.JSON(http.StatusOK, models.ToastResponse{
		Status:  "success",
		Level:   "info",
		Message: "Logged out",
	})
}

// RegisterGuest handles guest self-registration
func (h *Handler) RegisterGuest(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.RegisterGuest(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Users returns the login picker list
func (h *Handler) Users(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Users())
}

// Catalog returns the item catalog
func (h *Handler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Catalog())
}

// Availability reports whether the signup windows are open
func (h *Handler) Availability(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Availability())
}

// Reload rebuilds the snapshot from the ledger. It stays public so the
// kiosk can reload before anyone is logged in, but when a logged-in page
// triggers it the reload counts as a navigation and suppresses the forced
// logout.
func (h *Handler) Reload(c *gin.Context) {
	if nick, ok := nickFromToken(c); ok {
		h.service.TouchSession(nick)
	}
	c.JSON(http.StatusOK, h.service.Reload(c.Request.Context()))
}

// UserView returns the principal's debt and unpaid orders
func (h *Handler) UserView(c *gin.Context) {
	resp, err := h.service.UserView(nickFromContext(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitOrder records a catalog item purchase
func (h *Handler) SubmitOrder(c *gin.Context) {
	var req models.OrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.SubmitOrder(c.Request.Context(), nickFromContext(c), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitCustomOrder records a free-form purchase
func (h *Handler) SubmitCustomOrder(c *gin.Context) {
	var req models.CustomOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.SubmitCustomOrder(c.Request.Context(), nickFromContext(c), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitBreakfastSignup records a breakfast signup on the tab
func (h *Handler) SubmitBreakfastSignup(c *gin.Context) {
	var req models.BreakfastSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.SubmitBreakfastSignup(c.Request.Context(), nickFromContext(c), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitDinnerSignup records a dinner signup on the tab
func (h *Handler) SubmitDinnerSignup(c *gin.Context) {
	var req models.DinnerSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.SubmitDinnerSignup(c.Request.Context(), nickFromContext(c), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StartCheckout opens a hosted payment session
func (h *Handler) StartCheckout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.StartCheckout(c.Request.Context(), nickFromContext(c), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CheckoutStatus reports the current payment session state. The kiosk
// dialog polls this while the hosted page is open.
func (h *Handler) CheckoutStatus(c *gin.Context) {
	resp, err := h.service.CheckoutStatus(nickFromContext(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CloseCheckout dismisses the payment dialog
func (h *Handler) CloseCheckout(c *gin.Context) {
	resp, err := h.service.CloseCheckout(nickFromContext(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BreakfastList returns today's breakfast signups
func (h *Handler) BreakfastList(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.BreakfastList())
}

// DinnerList returns today's dinner signups including volunteer rows
func (h *Handler) DinnerList(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.DinnerList())
}

// DinnerCounts returns the kitchen headcount aggregation
func (h *Handler) DinnerCounts(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.DinnerCountsView())
}

// TaxTotals returns revenue per tax category
func (h *Handler) TaxTotals(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.TaxTotals())
}

// SubmitLateDinnerSignup records an admin-entered signup
func (h *Handler) SubmitLateDinnerSignup(c *gin.Context) {
	var req models.LateDinnerSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.SubmitLateDinnerSignup(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetServed toggles the served flag on an order
func (h *Handler) SetServed(c *gin.Context) {
	var req models.SetServedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.SetServed(c.Request.Context(), c.Param("orderId"), *req.Served)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarkTabPaid marks every unpaid order of a user as paid
func (h *Handler) MarkTabPaid(c *gin.Context) {
	resp, err := h.service.MarkTabPaid(c.Request.Context(), c.Param("nickName"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

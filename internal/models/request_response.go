package models

// Request models
type LoginRequest struct {
	NickName string `json:"nickName" binding:"required"`
}

type OrderItemRequest struct {
	Item     string  `json:"item" binding:"required"`
	Quantity float64 `json:"quantity" binding:"omitempty,gt=0"`
}

type CustomOrderRequest struct {
	Name        string  `json:"name" binding:"required"`
	Price       float64 `json:"price" binding:"required,gte=0"`
	TaxCategory string  `json:"taxCategory" binding:"required"`
	Description string  `json:"description"`
}

type BreakfastSignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Item      string `json:"item"`
	Allergies string `json:"allergies"`
	PayNow    bool   `json:"payNow"`
}

type DinnerSignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Diet      string `json:"diet"`
	Allergies string `json:"allergies"`
	PayNow    bool   `json:"payNow"`
}

type LateDinnerSignupRequest struct {
	NickName  string `json:"nickName" binding:"required"`
	FullName  string `json:"fullName" binding:"required"`
	Diet      string `json:"diet"`
	Allergies string `json:"allergies"`
}

type RegisterRequest struct {
	NickName    string `json:"nickName" binding:"required"`
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email" binding:"omitempty,email"`
	Diet        string `json:"diet"`
	Allergies   string `json:"allergies"`
}

type SetServedRequest struct {
	Served *bool `json:"served" binding:"required"`
}

type CheckoutRequest struct {
	Kind     CheckoutKind `json:"kind" binding:"required,oneof=item dinner breakfast tab"`
	Item     string       `json:"item"`
	Quantity float64      `json:"quantity" binding:"omitempty,gt=0"`
	// Signup checkouts carry the pending form so the commit can write the
	// row once the gateway confirms payment.
	Breakfast *BreakfastSignupRequest `json:"breakfast,omitempty"`
	Dinner    *DinnerSignupRequest    `json:"dinner,omitempty"`
}

// Response models
type ToastResponse struct {
	Status  string `json:"status"`
	Level   string `json:"level"` // info, warning, error
	Message string `json:"message"`
}

type LoginResponse struct {
	Status    string `json:"status"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
	User      User   `json:"user"`
}

type UsersResponse struct {
	Status string `json:"status"`
	Users  []User `json:"users"`
}

type UserViewResponse struct {
	Status string  `json:"status"`
	User   User    `json:"user"`
	Debt   float64 `json:"debt"`
	Orders []Order `json:"orders"`
}

type CatalogResponse struct {
	Status string `json:"status"`
	Items  []Item `json:"items"`
}

type SignupListResponse struct {
	Status  string  `json:"status"`
	Signups []Order `json:"signups"`
}

// DinnerCounts aggregates the dinner signup view by diet, split into
// volunteers and paying guests.
type DinnerCounts struct {
	Total                int `json:"total"`
	Vegan                int `json:"vegan"`
	Vegetarian           int `json:"vegetarian"`
	Meat                 int `json:"meat"`
	Volunteers           int `json:"volunteers"`
	VeganVolunteers      int `json:"veganVolunteers"`
	VegetarianVolunteers int `json:"vegetarianVolunteers"`
	MeatVolunteers       int `json:"meatVolunteers"`
}

type DinnerCountsResponse struct {
	Status string       `json:"status"`
	Counts DinnerCounts `json:"counts"`
}

type TaxTotalsResponse struct {
	Status string             `json:"status"`
	Totals map[string]float64 `json:"totals"`
}

type AvailabilityResponse struct {
	Status        string `json:"status"`
	BreakfastOpen bool   `json:"breakfastOpen"`
	DinnerOpen    bool   `json:"dinnerOpen"`
}

type CheckoutResponse struct {
	Status  string         `json:"status"`
	Session PaymentSession `json:"session"`
}

type CloseCheckoutResponse struct {
	Status   string `json:"status"`
	Redirect bool   `json:"redirect"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/obhonesty/server/internal/ledger"
	"github.com/obhonesty/server/internal/models"
	"github.com/obhonesty/server/internal/orders"
	"github.com/obhonesty/server/internal/payment"
	"github.com/obhonesty/server/internal/snapshot"
	"github.com/obhonesty/server/internal/state"
	"github.com/obhonesty/server/internal/views"
)

// ErrUnknownUser is returned when a nick name has no row in the snapshot.
var ErrUnknownUser = errors.New("unknown nick name")

// ErrNoSession is returned when an operation requires a login session.
var ErrNoSession = errors.New("no active login session")

// ErrCheckoutIncomplete is returned when a checkout request lacks the
// fields its kind needs.
var ErrCheckoutIncomplete = errors.New("checkout request is missing required fields")

// Service defines all the business logic operations exposed to the UI
// glue. Every operation returns either a success result or a toast-class
// message; collaborator failures never surface as raw errors.
type Service interface {
	// Sessions
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(nick string)
	ActiveSession(nick string) bool
	TouchSession(nick string)

	// Snapshot
	Reload(ctx context.Context) *models.ToastResponse

	// Derived views
	Users() *models.UsersResponse
	Catalog() *models.CatalogResponse
	UserView(nick string) (*models.UserViewResponse, error)
	BreakfastList() *models.SignupListResponse
	DinnerList() *models.SignupListResponse
	DinnerCountsView() *models.DinnerCountsResponse
	TaxTotals() *models.TaxTotalsResponse
	Availability() *models.AvailabilityResponse

	// Ledger writes
	SubmitOrder(ctx context.Context, nick string, req models.OrderItemRequest) (*models.ToastResponse, error)
	SubmitCustomOrder(ctx context.Context, nick string, req models.CustomOrderRequest) (*models.ToastResponse, error)
	SubmitBreakfastSignup(ctx context.Context, nick string, req models.BreakfastSignupRequest) (*models.ToastResponse, error)
	SubmitDinnerSignup(ctx context.Context, nick string, req models.DinnerSignupRequest) (*models.ToastResponse, error)
	SubmitLateDinnerSignup(ctx context.Context, req models.LateDinnerSignupRequest) (*models.ToastResponse, error)
	RegisterGuest(ctx context.Context, req models.RegisterRequest) (*models.ToastResponse, error)
	SetServed(ctx context.Context, orderID string, served bool) (*models.ToastResponse, error)
	MarkTabPaid(ctx context.Context, nick string) (*models.ToastResponse, error)

	// Payment reconciliation
	StartCheckout(ctx context.Context, nick string, req models.CheckoutRequest) (*models.CheckoutResponse, error)
	CheckoutStatus(nick string) (*models.CheckoutResponse, error)
	CloseCheckout(nick string) (*models.CloseCheckoutResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	st          *state.Container
	builder     *snapshot.Builder
	orders      *orders.Service
	reconciler  *payment.Reconciler
	jwtSecret   []byte
	tokenTTL    time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(
	st *state.Container,
	builder *snapshot.Builder,
	orderSvc *orders.Service,
	reconciler *payment.Reconciler,
	jwtSecret string,
	idleTimeout time.Duration,
) *DefaultService {
	return &DefaultService{
		st:          st,
		builder:     builder,
		orders:      orderSvc,
		reconciler:  reconciler,
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    12 * time.Hour,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

var _ Service = (*DefaultService)(nil)

// toast helpers
func toastInfo(format string, args ...any) *models.ToastResponse {
	return &models.ToastResponse{Status: "success", Level: "info", Message: fmt.Sprintf(format, args...)}
}

func toastWarning(message string) *models.ToastResponse {
	return &models.ToastResponse{Status: "success", Level: "warning", Message: message}
}

func toastNoBackend() *models.ToastResponse {
	return &models.ToastResponse{Status: "error", Level: "error", Message: "No backend connected"}
}

// Login opens a session for an existing principal and issues the kiosk
// token. The forced-logout countdown starts here and is suppressed by the
// first subsequent navigation.
func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	snap := s.st.Snapshot()
	user, ok := snap.UserByNick(req.NickName)
	if !ok {
		return nil, ErrUnknownUser
	}

	s.st.Login(user.NickName, s.idleTimeout)

	token, err := s.generateJWT(user.NickName)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.LoginResponse{
		Status:    "success",
		Token:     token,
		ExpiresIn: int(s.tokenTTL.Seconds()),
		User:      user,
	}, nil
}

func (s *DefaultService) Logout(nick string) {
	s.st.Logout(nick)
}

func (s *DefaultService) ActiveSession(nick string) bool {
	return s.st.Active(nick)
}

func (s *DefaultService) TouchSession(nick string) {
	s.st.Touch(nick)
}

// Reload rebuilds the snapshot from the ledger and publishes it atomically.
func (s *DefaultService) Reload(ctx context.Context) *models.ToastResponse {
	snap, degraded := s.builder.Build(ctx)
	s.st.SetSnapshot(snap)
	if degraded {
		return toastWarning("No backend connection")
	}
	return toastInfo("Data reloaded")
}

func (s *DefaultService) Users() *models.UsersResponse {
	snap := s.st.Snapshot()
	return &models.UsersResponse{Status: "success", Users: snap.Users}
}

func (s *DefaultService) Catalog() *models.CatalogResponse {
	snap := s.st.Snapshot()
	items := make([]models.Item, 0, len(snap.Items))
	for _, item := range snap.Items {
		items = append(items, item)
	}
	return &models.CatalogResponse{Status: "success", Items: items}
}

// UserView returns the principal's debt and unpaid order history.
func (s *DefaultService) UserView(nick string) (*models.UserViewResponse, error) {
	snap := s.st.Snapshot()
	user, ok := snap.UserByNick(nick)
	if !ok {
		return nil, ErrUnknownUser
	}
	return &models.UserViewResponse{
		Status: "success",
		User:   user,
		Debt:   views.Debt(snap, nick),
		Orders: views.UserOrders(snap, nick),
	}, nil
}

func (s *DefaultService) BreakfastList() *models.SignupListResponse {
	return &models.SignupListResponse{
		Status:  "success",
		Signups: views.BreakfastSignups(s.st.Snapshot(), s.now()),
	}
}

func (s *DefaultService) DinnerList() *models.SignupListResponse {
	return &models.SignupListResponse{
		Status:  "success",
		Signups: views.DinnerSignups(s.st.Snapshot(), s.now()),
	}
}

func (s *DefaultService) DinnerCountsView() *models.DinnerCountsResponse {
	return &models.DinnerCountsResponse{
		Status: "success",
		Counts: views.DinnerCounts(s.st.Snapshot(), s.now()),
	}
}

func (s *DefaultService) TaxTotals() *models.TaxTotalsResponse {
	return &models.TaxTotalsResponse{
		Status: "success",
		Totals: views.TaxTotals(s.st.Snapshot()),
	}
}

func (s *DefaultService) Availability() *models.AvailabilityResponse {
	snap := s.st.Snapshot()
	now := s.now()
	return &models.AvailabilityResponse{
		Status:        "success",
		BreakfastOpen: views.BreakfastAvailable(snap.Admin, now),
		DinnerOpen:    views.DinnerAvailable(snap.Admin, now),
	}
}

// resolveUser maps an authenticated nick to its snapshot row.
func (s *DefaultService) resolveUser(nick string) (*models.Snapshot, models.User, error) {
	snap := s.st.Snapshot()
	user, ok := snap.UserByNick(nick)
	if !ok {
		return nil, models.User{}, ErrUnknownUser
	}
	return snap, user, nil
}

// SubmitOrder records a catalog item purchase against the tab.
func (s *DefaultService) SubmitOrder(ctx context.Context, nick string, req models.OrderItemRequest) (*models.ToastResponse, error) {
	snap, user, err := s.resolveUser(nick)
	if err != nil {
		return nil, err
	}
	item, ok := snap.Items[req.Item]
	if !ok {
		return nil, orders.ErrUnknownItem
	}
	if err := s.orders.AppendItemOrder(ctx, user, item, req.Quantity, false); err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			return toastNoBackend(), nil
		}
		return nil, err
	}
	return toastInfo("'%s' registered successfully. Thank you!", item.Name), nil
}

func (s *DefaultService) SubmitCustomOrder(ctx context.Context, nick string, req models.CustomOrderRequest) (*models.ToastResponse, error) {
	_, user, err := s.resolveUser(nick)
	if err != nil {
		return nil, err
	}
	if err := s.orders.AppendCustomOrder(ctx, user, req); err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			return toastNoBackend(), nil
		}
		return nil, err
	}
	return toastInfo("'%s' registered successfully. Thank you!", req.Name), nil
}

func (s *DefaultService) SubmitBreakfastSignup(ctx context.Context, nick string, req models.BreakfastSignupRequest) (*models.ToastResponse, error) {
	snap, user, err := s.resolveUser(nick)
	if err != nil {
		return nil, err
	}
	if err := s.orders.AppendBreakfastSignup(ctx, snap, user, req, false); err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			return toastNoBackend(), nil
		}
		return nil, err
	}
	return toastInfo("Breakfast signup registered. Thank you!"), nil
}

func (s *DefaultService) SubmitDinnerSignup(ctx context.Context, nick string, req models.DinnerSignupRequest) (*models.ToastResponse, error) {
	snap, user, err := s.resolveUser(nick)
	if err != nil {
		return nil, err
	}
	if err := s.orders.AppendDinnerSignup(ctx, snap, user, req, false); err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			return toastNoBackend(), nil
		}
		return nil, err
	}
	return toastInfo("Dinner signup registered. Thank you!"), nil
}

func (s *DefaultService) SubmitLateDinnerSignup(ctx context.Context, req models.LateDinnerSignupRequest) (*models.ToastResponse, error) {
	snap := s.st.Snapshot()
	if err := s.orders.AppendLateDinnerSignup(ctx, snap, req); err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			return toastNoBackend(), nil
		}
		return nil, err
	}
	return toastInfo("Late dinner signup registered."), nil
}

func (s *DefaultService) RegisterGuest(ctx context.Context, req models.RegisterRequest) (*models.ToastResponse, error) {
	snap := s.st.Snapshot()
	if err := s.orders.RegisterGuest(ctx, snap, req); err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			return toastNoBackend(), nil
		}
		return nil, err
	}
	return toastInfo("Welcome, %s!", req.NickName), nil
}

// SetServed writes the served cell and patches the published snapshot so
// the admin list reflects the toggle without a full reload.
func (s *DefaultService) SetServed(ctx context.Context, orderID string, served bool) (*models.ToastResponse, error) {
	if err := s.orders.SetServed(ctx, orderID, served); err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			return toastNoBackend(), nil
		}
		return nil, err
	}
	value := models.FalseCell
	if served {
		value = models.TrueCell
	}
	s.st.PatchServed(orderID, value)
	return toastInfo("Order updated."), nil
}

// MarkTabPaid flips every unpaid order of the principal to paid and
// reloads the snapshot so the debt view drops to zero.
func (s *DefaultService) MarkTabPaid(ctx context.Context, nick string) (*models.ToastResponse, error) {
	snap, _, err := s.resolveUser(nick)
	if err != nil {
		return nil, err
	}
	if err := s.orders.MarkTabPaid(ctx, snap, nick); err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			return toastNoBackend(), nil
		}
		return nil, err
	}
	s.Reload(ctx)
	return toastInfo("Tab paid successfully!"), nil
}

// StartCheckout resolves the amount and description for the requested
// target, opens the hosted session and arms the poll loop with the commit
// appropriate to the target kind. Paid rows are written paid; the whole
// tab commits through the batch update.
func (s *DefaultService) StartCheckout(ctx context.Context, nick string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	snap, user, err := s.resolveUser(nick)
	if err != nil {
		return nil, err
	}
	if !s.st.Active(nick) {
		return nil, ErrNoSession
	}

	var (
		description string
		amount      float64
		commit      payment.CommitFunc
	)

	switch req.Kind {
	case models.CheckoutItem:
		item, ok := snap.Items[req.Item]
		if !ok {
			return nil, orders.ErrUnknownItem
		}
		quantity := req.Quantity
		if quantity <= 0 {
			quantity = 1.0
		}
		description = fmt.Sprintf("%gx %s (Self-Service)", quantity, item.Name)
		amount = quantity * item.Price
		commit = func(ctx context.Context) error {
			return s.orders.AppendItemOrder(ctx, user, item, quantity, true)
		}

	case models.CheckoutBreakfast:
		if req.Breakfast == nil {
			return nil, ErrCheckoutIncomplete
		}
		breakfast := *req.Breakfast
		// Validation and the dedup guard must run before any money
		// changes hands.
		if err := s.orders.ValidateBreakfastSignup(snap, breakfast); err != nil {
			return nil, err
		}
		price := orders.BreakfastPrice(snap.Admin, breakfast.Item, user.Volunteer)
		description = fmt.Sprintf("1x %s (Self-Service)", breakfast.Item)
		amount = price
		// The commit must not re-run the dedup precondition: once the
		// gateway confirms, the paid fact reaches the ledger even if a
		// conflicting signup appeared while the hosted page was open.
		commit = func(ctx context.Context) error {
			return s.orders.AppendPaidBreakfastSignup(ctx, user, breakfast, price)
		}

	case models.CheckoutDinner:
		if req.Dinner == nil {
			return nil, ErrCheckoutIncomplete
		}
		dinner := *req.Dinner
		if err := s.orders.ValidateDinnerSignup(snap, user, dinner); err != nil {
			return nil, err
		}
		description = "1x dinner (Self-Service)"
		price := snap.Admin.FloatOr("dinner_price", 0.0)
		amount = price
		commit = func(ctx context.Context) error {
			return s.orders.AppendPaidDinnerSignup(ctx, user, dinner, price)
		}

	case models.CheckoutTab:
		description = "Honesty bar tab"
		amount = views.Debt(snap, nick)
		commit = func(ctx context.Context) error {
			if err := s.orders.MarkTabPaid(ctx, s.st.Snapshot(), nick); err != nil {
				return err
			}
			s.Reload(ctx)
			return nil
		}

	default:
		return nil, ErrCheckoutIncomplete
	}

	session, err := s.reconciler.StartCheckout(ctx, nick, req.Kind, description, amount, commit)
	if err != nil {
		if errors.Is(err, payment.ErrNoSession) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return &models.CheckoutResponse{Status: "success", Session: session}, nil
}

func (s *DefaultService) CheckoutStatus(nick string) (*models.CheckoutResponse, error) {
	session, ok := s.st.PaymentSession(nick)
	if !ok {
		return nil, ErrNoSession
	}
	return &models.CheckoutResponse{Status: "success", Session: session}, nil
}

func (s *DefaultService) CloseCheckout(nick string) (*models.CloseCheckoutResponse, error) {
	redirect, ok := s.reconciler.CloseCheckout(nick)
	if !ok {
		return nil, ErrNoSession
	}
	return &models.CloseCheckoutResponse{Status: "success", Redirect: redirect}, nil
}

// Helper methods
func (s *DefaultService) generateJWT(nick string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": nick,
		"exp": now.Add(s.tokenTTL).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// Package orders appends new facts to the ledger: purchases, signups,
// guest registrations and the mark-tab-paid batch update.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/obhonesty/server/internal/ledger"
	"github.com/obhonesty/server/internal/metrics"
	"github.com/obhonesty/server/internal/models"
	"github.com/obhonesty/server/internal/views"
)

// ErrUnknownItem is returned when an ordered item is not in the catalog.
var ErrUnknownItem = errors.New("unknown catalog item")

// ErrNickNameTaken is returned when a registration reuses an existing nick.
var ErrNickNameTaken = errors.New("nick name is already taken")

// DuplicateSignupError rejects a signup whose receiver already appears in
// the relevant daily signup view.
type DuplicateSignupError struct {
	Receiver string
}

func (e *DuplicateSignupError) Error() string {
	return fmt.Sprintf("%s is already signed up, please provide a different name if you want to sign up another person", e.Receiver)
}

// ValidationError carries one message per missing required field.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewOrderID generates the short opaque row identifier that doubles as the
// idempotency key. Eight characters over a 36-symbol alphabet, drawn from
// uuid entropy; collisions are probabilistic and retries are the caller's
// concern.
func NewOrderID() string {
	id := uuid.New()
	b := make([]byte, 8)
	for i := range b {
		b[i] = idAlphabet[int(id[i])%len(idAlphabet)]
	}
	return string(b)
}

// ReceiverName builds the upper-cased receiver cell from a first and last
// name.
func ReceiverName(first, last string) string {
	return strings.ToUpper(strings.TrimSpace(first)) + " " + strings.ToUpper(strings.TrimSpace(last))
}

// Service validates and appends ledger rows. Totals are always computed
// here at write time; a client-supplied total is never trusted.
type Service struct {
	gw  ledger.Gateway
	now func() time.Time
}

// NewService creates an order append service over the given gateway.
func NewService(gw ledger.Gateway) *Service {
	return &Service{gw: gw, now: time.Now}
}

// NewServiceWithClock creates a Service with an injected clock for tests.
func NewServiceWithClock(gw ledger.Gateway, now func() time.Time) *Service {
	return &Service{gw: gw, now: now}
}

func (s *Service) writeTime() string {
	return s.now().Format(models.WireTimeFormat)
}

// paidBlock returns the trailing paid columns for a row written as already
// paid by a reconciliation commit. Paid rows are written paid rather than
// written and then updated.
func (s *Service) paidBlock(paid bool) []any {
	if !paid {
		return []any{models.FalseCell}
	}
	return []any{models.PaidMarker, s.writeTime(), models.PaymentMethodStripe, models.CheckoutStaffTablet}
}

func (s *Service) append(ctx context.Context, kind, orderID string, values []any) error {
	if err := s.gw.AppendRow(ctx, ledger.OrderSheet, values, orderID); err != nil {
		slog.Error("order append failed", "kind", kind, "order_id", orderID, "error", err)
		return err
	}
	metrics.LedgerAppends.WithLabelValues(kind).Inc()
	slog.Info("ledger row appended", "kind", kind, "order_id", orderID)
	return nil
}

// AppendItemOrder records a catalog item purchase for the given user.
// A zero quantity degrades to 1.
func (s *Service) AppendItemOrder(ctx context.Context, user models.User, item models.Item, quantity float64, paid bool) error {
	if quantity <= 0 {
		quantity = 1.0
	}
	orderID := NewOrderID()
	row := []any{
		orderID, user.NickName, s.writeTime(), item.Name,
		quantity, item.Price, quantity * item.Price,
		"", "", "", "", item.TaxCategory, "",
	}
	row = append(row, s.paidBlock(paid)...)
	return s.append(ctx, "order", orderID, row)
}

// AppendCustomOrder records a free-form item with a caller-supplied price.
func (s *Service) AppendCustomOrder(ctx context.Context, user models.User, req models.CustomOrderRequest) error {
	orderID := NewOrderID()
	row := []any{
		orderID, user.NickName, s.writeTime(), req.Name,
		1.0, req.Price, req.Price,
		"", "", "", "", req.TaxCategory, req.Description,
	}
	return s.append(ctx, "custom", orderID, row)
}

// BreakfastPrice resolves the price of a breakfast item from admin config,
// with the volunteer override forcing it to zero.
func BreakfastPrice(admin models.AdminConfig, item string, volunteer bool) float64 {
	if volunteer {
		return 0.0
	}
	return admin.FloatOr(item+"_price", 0.0)
}

// ValidateBreakfastSignup checks required fields and the one-per-receiver-
// per-day rule. Packed lunch variants are exempt from the dedup rule.
func (s *Service) ValidateBreakfastSignup(snap *models.Snapshot, req models.BreakfastSignupRequest) error {
	var missing []string
	if strings.TrimSpace(req.FirstName) == "" {
		missing = append(missing, "MISSING FIELD - Please enter a first name.")
	}
	if strings.TrimSpace(req.LastName) == "" {
		missing = append(missing, "MISSING FIELD - Please enter a last name.")
	}
	if req.Item == "" {
		missing = append(missing, "MISSING FIELD - Please select a breakfast item to order.")
	}
	if len(missing) > 0 {
		return &ValidationError{Messages: missing}
	}

	receiver := ReceiverName(req.FirstName, req.LastName)
	if !strings.HasPrefix(strings.ToLower(req.Item), models.PackedLunchPrefix) {
		for _, o := range views.BreakfastSignups(snap, s.now()) {
			if o.Receiver == receiver {
				return &DuplicateSignupError{Receiver: receiver}
			}
		}
	}
	return nil
}

// AppendBreakfastSignup validates and records a breakfast signup.
func (s *Service) AppendBreakfastSignup(ctx context.Context, snap *models.Snapshot, user models.User, req models.BreakfastSignupRequest, paid bool) error {
	if err := s.ValidateBreakfastSignup(snap, req); err != nil {
		return err
	}
	price := BreakfastPrice(snap.Admin, req.Item, user.Volunteer)
	return s.appendBreakfastRow(ctx, user, req, price, paid)
}

// AppendPaidBreakfastSignup writes the signup row for a gateway-confirmed
// payment. No precondition re-runs here: the guest has paid, so the row
// must reach the ledger even if a conflicting signup landed in the
// meantime. The price is the one the guest was charged at checkout start.
func (s *Service) AppendPaidBreakfastSignup(ctx context.Context, user models.User, req models.BreakfastSignupRequest, price float64) error {
	return s.appendBreakfastRow(ctx, user, req, price, true)
}

func (s *Service) appendBreakfastRow(ctx context.Context, user models.User, req models.BreakfastSignupRequest, price float64, paid bool) error {
	receiver := ReceiverName(req.FirstName, req.LastName)
	orderID := NewOrderID()
	row := []any{
		orderID, user.NickName, s.writeTime(), models.BreakfastSignupItem,
		1.0, price, price,
		receiver, req.Item, req.Allergies, "", models.TaxCategorySignups, "",
	}
	row = append(row, s.paidBlock(paid)...)
	return s.append(ctx, "breakfast", orderID, row)
}

// dinnerDefaults fills empty name and diet fields from the ordering user,
// mirroring the prefilled form.
func dinnerDefaults(user models.User, req models.DinnerSignupRequest) models.DinnerSignupRequest {
	if strings.TrimSpace(req.FirstName) == "" {
		req.FirstName = user.FirstName
	}
	if strings.TrimSpace(req.LastName) == "" {
		req.LastName = user.LastName
	}
	if req.Diet == "" {
		req.Diet = user.Diet
	}
	return req
}

// ValidateDinnerSignup checks the one-per-receiver-per-day rule after
// applying the user defaults.
func (s *Service) ValidateDinnerSignup(snap *models.Snapshot, user models.User, req models.DinnerSignupRequest) error {
	req = dinnerDefaults(user, req)
	receiver := ReceiverName(req.FirstName, req.LastName)
	for _, o := range views.DinnerSignups(snap, s.now()) {
		if o.Receiver == receiver {
			return &DuplicateSignupError{Receiver: receiver}
		}
	}
	return nil
}

// AppendDinnerSignup validates and records a dinner signup.
func (s *Service) AppendDinnerSignup(ctx context.Context, snap *models.Snapshot, user models.User, req models.DinnerSignupRequest, paid bool) error {
	req = dinnerDefaults(user, req)
	if err := s.ValidateDinnerSignup(snap, user, req); err != nil {
		return err
	}
	price := snap.Admin.FloatOr("dinner_price", 0.0)
	return s.appendDinnerRow(ctx, user, req, price, paid)
}

// AppendPaidDinnerSignup writes the signup row for a gateway-confirmed
// payment, skipping the dedup precondition. See AppendPaidBreakfastSignup.
func (s *Service) AppendPaidDinnerSignup(ctx context.Context, user models.User, req models.DinnerSignupRequest, price float64) error {
	return s.appendDinnerRow(ctx, user, dinnerDefaults(user, req), price, true)
}

func (s *Service) appendDinnerRow(ctx context.Context, user models.User, req models.DinnerSignupRequest, price float64, paid bool) error {
	receiver := ReceiverName(req.FirstName, req.LastName)
	orderID := NewOrderID()
	row := []any{
		orderID, user.NickName, s.writeTime(), models.DinnerSignupItem,
		1.0, price, price,
		receiver, req.Diet, req.Allergies, "", models.TaxCategorySignups, "",
	}
	row = append(row, s.paidBlock(paid)...)
	return s.append(ctx, "dinner", orderID, row)
}

// AppendLateDinnerSignup records an admin-entered signup after the window
// closed. No payment fields are written.
func (s *Service) AppendLateDinnerSignup(ctx context.Context, snap *models.Snapshot, req models.LateDinnerSignupRequest) error {
	price := snap.Admin.FloatOr("dinner_price", 0.0)
	orderID := NewOrderID()
	row := []any{
		orderID, req.NickName, s.writeTime(), models.DinnerSignupItem,
		1.0, price, price,
		strings.ToUpper(strings.TrimSpace(req.FullName)), req.Diet, req.Allergies,
		"", models.TaxCategorySignups, "",
	}
	return s.append(ctx, "late_dinner", orderID, row)
}

// RegisterGuest appends a new principal to the users sheet after checking
// the nick name against the current snapshot.
func (s *Service) RegisterGuest(ctx context.Context, snap *models.Snapshot, req models.RegisterRequest) error {
	if _, taken := snap.UserByNick(req.NickName); taken {
		return ErrNickNameTaken
	}
	row := []any{
		req.NickName, req.FirstName, req.LastName, req.PhoneNumber,
		req.Email, req.Diet, req.Allergies, "", "", "",
	}
	if err := s.gw.AppendRow(ctx, ledger.UserSheet, row, req.NickName); err != nil {
		slog.Error("guest registration failed", "nick_name", req.NickName, "error", err)
		return err
	}
	metrics.LedgerAppends.WithLabelValues("user").Inc()
	return nil
}

// MarkTabPaid flips the paid block on every unpaid order of the principal
// via targeted cell updates at fixed columns. The store has no transaction
// boundary: a partial failure leaves already-applied writes standing.
func (s *Service) MarkTabPaid(ctx context.Context, snap *models.Snapshot, nick string) error {
	now := s.writeTime()
	var cells []ledger.Cell
	for _, o := range snap.Orders {
		if o.UserNickName != nick || o.PaidBool() {
			continue
		}
		cells = append(cells,
			ledger.Cell{Row: o.Row, Col: ledger.PaidColumn, Value: models.PaidMarker},
			ledger.Cell{Row: o.Row, Col: ledger.PaidTimeColumn, Value: now},
			ledger.Cell{Row: o.Row, Col: ledger.MethodColumn, Value: models.PaymentMethodStripe},
			ledger.Cell{Row: o.Row, Col: ledger.CheckoutStaffColumn, Value: models.CheckoutStaffTablet},
		)
	}
	if len(cells) == 0 {
		return nil
	}
	if err := s.gw.UpdateCells(ctx, ledger.OrderSheet, cells); err != nil {
		slog.Error("mark tab paid failed", "nick_name", nick, "error", err)
		return fmt.Errorf("error updating paid cells: %w", err)
	}
	slog.Info("tab marked paid", "nick_name", nick, "rows", len(cells)/4)
	return nil
}

// SetServed toggles the served cell of an order, located by its id.
func (s *Service) SetServed(ctx context.Context, orderID string, served bool) error {
	value := models.FalseCell
	if served {
		value = models.TrueCell
	}
	row, _, err := s.gw.FindCell(ctx, ledger.OrderSheet, orderID)
	if err != nil {
		return fmt.Errorf("error locating order %s: %w", orderID, err)
	}
	headerRow, col, err := s.gw.FindCell(ctx, ledger.OrderSheet, ledger.ServedHeader)
	if err != nil {
		return fmt.Errorf("error locating served column: %w", err)
	}
	if headerRow != 1 {
		return fmt.Errorf("served header found in row %d, expected the header row", headerRow)
	}
	if err := s.gw.UpdateCells(ctx, ledger.OrderSheet, []ledger.Cell{{Row: row, Col: col, Value: value}}); err != nil {
		return fmt.Errorf("error updating served cell: %w", err)
	}
	return nil
}

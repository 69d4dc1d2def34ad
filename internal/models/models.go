package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Item labels and fixed cell values used in the order sheet. These strings
// are load-bearing: existing rows in the ledger carry them, so they must not
// change without migrating the sheet.
const (
	BreakfastSignupItem  = "Breakfast sign-up"
	DinnerSignupItem     = "Dinner sign-up"
	VolunteerDinnerItem  = "Dinner sign-up (volunteer)"
	PackedLunchPrefix    = "packed lunch"
	TrueCell             = "TRUE"
	FalseCell            = "FALSE"
	PaidMarker           = TrueCell
	PaymentMethodStripe  = "stripe"
	CheckoutStaffTablet  = "tablet"
	TaxCategorySignups   = "Food and beverage non-alcoholic"
	DisplayTimeFormat    = "2006-01-02, 15:04:05"
	WireTimeFormat       = "2006-01-02T15:04:05.000000"
	SignupDeadlineLayout = "15:04"
)

// Diet values as they appear in the users sheet.
const (
	DietVegan      = "Vegan"
	DietVegetarian = "Vegetarian"
	DietMeat       = "Meat"
)

// truthyValues are the cell spellings accepted as "true" in flag columns.
var truthyValues = []string{"yes", "true", "1", "y"}

var nonAlphaNum = regexp.MustCompile(`\W+`)

// NormalizeFold lowers a string and strips non-alphanumeric characters.
// Sheet cells are hand-edited, so comparisons have to survive stray
// punctuation and casing.
func NormalizeFold(s string) string {
	return strings.ToLower(nonAlphaNum.ReplaceAllString(s, ""))
}

// FoldEqual reports whether two cell values are equal after normalization.
func FoldEqual(s, t string) bool {
	return NormalizeFold(s) == NormalizeFold(t)
}

// Truthy reports whether a flag cell holds a truthy marker.
func Truthy(s string) bool {
	n := NormalizeFold(s)
	for _, v := range truthyValues {
		if n == v {
			return true
		}
	}
	return false
}

// floatOr parses a numeric cell, degrading to a default on failure. A single
// corrupt cell must never block the rest of the snapshot.
func floatOr(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

// User represents a registered guest, keyed by nick name.
type User struct {
	NickName    string `json:"nickName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Diet        string `json:"diet"`
	Allergies   string `json:"allergies"`
	Volunteer   bool   `json:"volunteer"`
	Away        bool   `json:"away"`
}

// FullName returns the upper-cased receiver form used in signup rows.
func (u User) FullName() string {
	return strings.ToUpper(strings.TrimSpace(u.FirstName)) + " " + strings.ToUpper(strings.TrimSpace(u.LastName))
}

// UserFromRow builds a User from a raw sheet row.
func UserFromRow(row map[string]string) User {
	return User{
		NickName:    row["nick_name"],
		FirstName:   row["first_name"],
		LastName:    row["last_name"],
		PhoneNumber: row["phone_number"],
		Email:       row["email"],
		Diet:        row["diet"],
		Allergies:   row["allergies"],
		Volunteer:   Truthy(row["volunteer"]),
		Away:        Truthy(row["away"]),
	}
}

// Item represents a catalog entry, keyed by name.
type Item struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	TaxCategory string  `json:"taxCategory"`
}

// ItemFromRow builds an Item from a raw sheet row.
func ItemFromRow(row map[string]string) Item {
	return Item{
		Name:        row["name"],
		Price:       floatOr(row["price"], 0.0),
		Description: row["description"],
		TaxCategory: row["tax_category"],
	}
}

// Order represents one ledger row: a purchase or a signup. Rows are
// append-only except for the served cell and the paid block, which the
// payment commit writes exactly once.
type Order struct {
	OrderID       string  `json:"orderId"`
	UserNickName  string  `json:"userNickName"`
	Time          string  `json:"time"`
	Item          string  `json:"item"`
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price"`
	Total         float64 `json:"total"`
	Receiver      string  `json:"receiver"`
	Diet          string  `json:"diet"`
	Allergies     string  `json:"allergies"`
	Served        string  `json:"served"`
	TaxCategory   string  `json:"taxCategory"`
	Comment       string  `json:"comment"`
	Paid          string  `json:"paid"`
	PaidTime      string  `json:"paidTime"`
	Method        string  `json:"method"`
	CheckoutStaff string  `json:"checkoutStaff"`

	// Row is the 1-based sheet row this order was read from. Cell updates
	// address rows positionally, so it travels with the order.
	Row int `json:"-"`
}

// PaidBool reports whether the row carries the literal paid marker.
func (o Order) PaidBool() bool {
	return o.Paid == PaidMarker
}

// ServedBool reports whether the served cell holds a truthy marker.
func (o Order) ServedBool() bool {
	return Truthy(o.Served)
}

// OrderFromRow builds an Order from a raw sheet row. Non-numeric quantity
// degrades to 1, price and total to 0.
func OrderFromRow(row map[string]string, sheetRow int) Order {
	return Order{
		OrderID:       row["order_id"],
		UserNickName:  row["user"],
		Time:          row["time"],
		Item:          row["item"],
		Quantity:      floatOr(row["quantity"], 1.0),
		Price:         floatOr(row["price"], 0.0),
		Total:         floatOr(row["total"], 0.0),
		Receiver:      row["receiver"],
		Diet:          row["diet"],
		Allergies:     row["allergies"],
		Served:        row["served"],
		TaxCategory:   row["tax_category"],
		Comment:       row["comment"],
		Paid:          row["paid"],
		PaidTime:      row["paid_time"],
		Method:        row["method"],
		CheckoutStaff: row["checkout_staff"],
		Row:           sheetRow,
	}
}

// AdminConfig is the flat key→value map read from the admin sheet: per-item
// prices and signup deadlines. Treated as opaque configuration.
type AdminConfig map[string]string

// FloatOr returns the numeric value for a key, or a default when the key is
// absent or unparsable.
func (a AdminConfig) FloatOr(key string, def float64) float64 {
	v, ok := a[key]
	if !ok {
		return def
	}
	return floatOr(v, def)
}

// Snapshot is an immutable in-memory materialization of the ledger.
// It is replaced wholesale on reload and never mutated after publish;
// local corrections (the admin served toggle) swap in a shallow copy.
type Snapshot struct {
	Users   []User
	Items   map[string]Item
	Orders  []Order
	Admin   AdminConfig
	BuiltAt time.Time
}

// EmptySnapshot returns the degraded no-backend snapshot.
func EmptySnapshot(builtAt time.Time) *Snapshot {
	return &Snapshot{
		Items:   map[string]Item{},
		Admin:   AdminConfig{},
		BuiltAt: builtAt,
	}
}

// UserByNick looks up a user by nick name. Duplicate nick names are not
// rejected on load, so the last matching row wins.
func (s *Snapshot) UserByNick(nick string) (User, bool) {
	var found User
	ok := false
	for _, u := range s.Users {
		if u.NickName == nick {
			found = u
			ok = true
		}
	}
	return found, ok
}

// NickNames returns all nick names in snapshot order.
func (s *Snapshot) NickNames() []string {
	names := make([]string, 0, len(s.Users))
	for _, u := range s.Users {
		names = append(names, u.NickName)
	}
	return names
}

// CheckoutKind identifies what a payment session is paying for.
type CheckoutKind string

const (
	CheckoutItem      CheckoutKind = "item"
	CheckoutDinner    CheckoutKind = "dinner"
	CheckoutBreakfast CheckoutKind = "breakfast"
	CheckoutTab       CheckoutKind = "tab"
)

// SignupKind reports whether the checkout belongs to a signup flow, which
// routes the UI back home after a completed write.
func (k CheckoutKind) SignupKind() bool {
	return k == CheckoutDinner || k == CheckoutBreakfast
}

// PaymentSession is the ephemeral state of one in-progress checkout.
// At most one exists per principal at a time.
type PaymentSession struct {
	Kind             CheckoutKind `json:"kind"`
	Description      string       `json:"description"`
	Amount           float64      `json:"amount"`
	GatewaySessionID string       `json:"-"`
	QRCode           string       `json:"qrCode"` // base64 PNG
	Paid             bool         `json:"paid"`
}

// Active reports whether a session is open (has artifacts to clear).
func (p PaymentSession) Active() bool {
	return p.GatewaySessionID != "" || p.QRCode != "" || p.Paid
}

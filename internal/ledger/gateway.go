// Package ledger provides access to the external spreadsheet that acts as
// the authoritative store: principals, catalog, orders and admin config all
// live in its sheets. The core only ever talks to the Gateway interface.
package ledger

import (
	"context"
	"errors"
)

// Sheet names inside the ledger spreadsheet.
const (
	UserSheet  = "users"
	ItemSheet  = "items"
	OrderSheet = "orders"
	AdminSheet = "admin"
)

// Column headers per sheet. Column order is load-bearing: appended rows and
// targeted cell updates address columns positionally.
var (
	UserColumns = []string{
		"nick_name", "first_name", "last_name", "phone_number", "email",
		"diet", "allergies", "volunteer", "away", "owes",
	}
	ItemColumns = []string{
		"name", "price", "description", "tax_category",
	}
	OrderColumns = []string{
		"order_id", "user", "time", "item", "quantity", "price", "total",
		"receiver", "diet", "allergies", "served", "tax_category", "comment",
		"paid", "paid_time", "method", "checkout_staff",
	}
)

// 1-based column numbers of the paid block in the order sheet, written by
// the mark-tab-paid batch update.
const (
	PaidColumn          = 14
	PaidTimeColumn      = 15
	MethodColumn        = 16
	CheckoutStaffColumn = 17
)

// ServedHeader is the order sheet column toggled by the admin served switch.
const ServedHeader = "served"

// ErrUnavailable is returned when the ledger backend cannot be reached or
// is not configured. Callers degrade per policy instead of propagating it
// to the UI.
var ErrUnavailable = errors.New("ledger backend unavailable")

// Cell addresses a single cell update. Row and Col are 1-based.
type Cell struct {
	Row   int
	Col   int
	Value any
}

// Gateway is the interface to the spreadsheet-backed ledger store.
// All calls may fail; failures are handled at the call site.
type Gateway interface {
	// ReadRows returns all data rows of a sheet as header→cell maps, in
	// sheet order. The first sheet row is treated as the header row and
	// must contain every expected column.
	ReadRows(ctx context.Context, sheet string, expected []string) ([]map[string]string, error)

	// AppendRow appends one row after the existing table. The idempotency
	// hint is the client-generated row identifier; the store itself does
	// not deduplicate.
	AppendRow(ctx context.Context, sheet string, values []any, idempotencyHint string) error

	// UpdateCells applies a set of targeted cell writes. The store provides
	// no transaction boundary; partial application is possible and is not
	// rolled back.
	UpdateCells(ctx context.Context, sheet string, cells []Cell) error

	// FindCell locates the first cell holding exactly value and returns its
	// 1-based coordinates.
	FindCell(ctx context.Context, sheet, value string) (row, col int, err error)
}

// Unavailable is the Gateway used when no spreadsheet is configured. Every
// call fails with ErrUnavailable, which downstream policies turn into empty
// snapshots and "no backend" toasts.
type Unavailable struct{}

var _ Gateway = Unavailable{}

func (Unavailable) ReadRows(context.Context, string, []string) ([]map[string]string, error) {
	return nil, ErrUnavailable
}

func (Unavailable) AppendRow(context.Context, string, []any, string) error {
	return ErrUnavailable
}

func (Unavailable) UpdateCells(context.Context, string, []Cell) error {
	return ErrUnavailable
}

func (Unavailable) FindCell(context.Context, string, string) (int, int, error) {
	return 0, 0, ErrUnavailable
}

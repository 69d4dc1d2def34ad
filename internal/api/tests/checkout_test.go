package api_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/obhonesty/server/internal/api/testutils"
	"github.com/obhonesty/server/internal/ledger"
	"github.com/obhonesty/server/internal/models"
	"github.com/obhonesty/server/internal/payment"
)

func startCheckout(t *testing.T, testCtx *testutils.TestContext, req models.CheckoutRequest) models.CheckoutResponse {
	t.Helper()
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/checkout",
		req,
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.CheckoutResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCheckoutItemFlow(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	ordersBefore := len(testCtx.Ledger.Grid(ledger.OrderSheet))

	resp := startCheckout(t, testCtx, models.CheckoutRequest{
		Kind: models.CheckoutItem, Item: "Beer", Quantity: 2,
	})
	assert.Equal(t, 5.0, resp.Session.Amount)
	assert.NotEmpty(t, resp.Session.QRCode)
	assert.False(t, resp.Session.Paid)

	// Nothing is written while the payment is pending.
	assert.Len(t, testCtx.Ledger.Grid(ledger.OrderSheet), ordersBefore)

	testCtx.Payments.SetStatus(payment.StatusPaid)

	assert.Eventually(t, func() bool {
		return len(testCtx.Ledger.Grid(ledger.OrderSheet)) == ordersBefore+1
	}, time.Second, time.Millisecond)

	grid := testCtx.Ledger.Grid(ledger.OrderSheet)
	row := grid[len(grid)-1]
	assert.Equal(t, "Beer", row[3])
	assert.Equal(t, models.PaidMarker, row[13])
	assert.Equal(t, models.PaymentMethodStripe, row[15])
	assert.Equal(t, models.CheckoutStaffTablet, row[16])

	// Item checkouts do not redirect home on close.
	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/checkout", nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusOK, w.Code)

	var closeResp models.CloseCheckoutResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &closeResp))
	assert.False(t, closeResp.Redirect)
}

func TestCheckoutDinnerRedirectsAfterPayment(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	testCtx.Payments.SetStatus(payment.StatusPaid)

	startCheckout(t, testCtx, models.CheckoutRequest{
		Kind:   models.CheckoutDinner,
		Dinner: &models.DinnerSignupRequest{},
	})

	// Poll until the status endpoint reports the payment.
	assert.Eventually(t, func() bool {
		w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/checkout", nil,
			testutils.AuthHeaders(testCtx.TestUserJWT))
		var resp models.CheckoutResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			return false
		}
		return resp.Session.Paid
	}, time.Second, 5*time.Millisecond)

	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/checkout", nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusOK, w.Code)

	var closeResp models.CloseCheckoutResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &closeResp))
	assert.True(t, closeResp.Redirect)

	// The signup row was written paid at the dinner price.
	grid := testCtx.Ledger.Grid(ledger.OrderSheet)
	row := grid[len(grid)-1]
	assert.Equal(t, models.DinnerSignupItem, row[3])
	assert.Equal(t, "5.5", row[5])
	assert.Equal(t, models.PaidMarker, row[13])
}

func TestCheckoutCloseWithoutPaying(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	ordersBefore := len(testCtx.Ledger.Grid(ledger.OrderSheet))

	startCheckout(t, testCtx, models.CheckoutRequest{
		Kind: models.CheckoutItem, Item: "Cola",
	})

	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/checkout", nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusOK, w.Code)

	var closeResp models.CloseCheckoutResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &closeResp))
	assert.False(t, closeResp.Redirect)

	// No write happened, and the session is cleared.
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, testCtx.Ledger.Grid(ledger.OrderSheet), ordersBefore)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/checkout", nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	var status models.CheckoutResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Session.Active())
}

func TestCheckoutTabCommitsBatchUpdate(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Put an unpaid order on the tab and publish it.
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/orders",
		models.OrderItemRequest{Item: "Beer"},
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/reload", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := startCheckout(t, testCtx, models.CheckoutRequest{Kind: models.CheckoutTab})
	assert.Equal(t, 2.5, resp.Session.Amount)

	testCtx.Payments.SetStatus(payment.StatusPaid)

	assert.Eventually(t, func() bool {
		grid := testCtx.Ledger.Grid(ledger.OrderSheet)
		row := grid[len(grid)-1]
		return len(row) >= ledger.PaidColumn && row[ledger.PaidColumn-1] == models.PaidMarker
	}, time.Second, time.Millisecond)

	// The commit reloads the snapshot, so the debt is gone.
	assert.Eventually(t, func() bool {
		w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/me", nil,
			testutils.AuthHeaders(testCtx.TestUserJWT))
		var view models.UserViewResponse
		if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
			return false
		}
		return view.Debt == 0.0
	}, time.Second, 5*time.Millisecond)
}

func TestCheckoutBreakfastCommitsDespiteMidCheckoutConflict(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	signup := models.BreakfastSignupRequest{FirstName: "John", LastName: "Doe", Item: "porridge"}
	startCheckout(t, testCtx, models.CheckoutRequest{
		Kind: models.CheckoutBreakfast, Breakfast: &signup,
	})

	// While the hosted page is open, the same receiver signs up through
	// another channel and the snapshot is reloaded.
	testCtx.Ledger.AddRow(ledger.OrderSheet, "conflict1", "alice",
		time.Now().Format(models.WireTimeFormat), models.BreakfastSignupItem,
		"1", "0", "0", "JOHN DOE", "porridge", "", "", models.TaxCategorySignups, "", "FALSE")
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/reload", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	rowsBeforePaid := len(testCtx.Ledger.Grid(ledger.OrderSheet))

	testCtx.Payments.SetStatus(payment.StatusPaid)

	// The confirmed payment still lands in the ledger: the guest was
	// charged, so the row is written no matter what arrived in between.
	assert.Eventually(t, func() bool {
		return len(testCtx.Ledger.Grid(ledger.OrderSheet)) == rowsBeforePaid+1
	}, time.Second, time.Millisecond)

	grid := testCtx.Ledger.Grid(ledger.OrderSheet)
	row := grid[len(grid)-1]
	assert.Equal(t, models.BreakfastSignupItem, row[3])
	assert.Equal(t, "JOHN DOE", row[7])
	assert.Equal(t, models.PaidMarker, row[13])
}

func TestCheckoutValidation(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Unknown kind is rejected by binding.
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/checkout",
		map[string]string{"kind": "lottery"},
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Dinner checkout without the signup payload.
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/checkout",
		models.CheckoutRequest{Kind: models.CheckoutDinner},
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Breakfast checkout with a receiver already signed up today conflicts
	// before any payment session is opened.
	signup := models.BreakfastSignupRequest{FirstName: "Alice", LastName: "Archer", Item: "porridge"}
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/signups/breakfast",
		signup,
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/reload", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/checkout",
		models.CheckoutRequest{Kind: models.CheckoutBreakfast, Breakfast: &signup},
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	assert.Equal(t, http.StatusConflict, w.Code)
}

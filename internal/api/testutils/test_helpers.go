// Package testutils wires a full in-memory server for API tests: fake
// ledger, fake payment gateway, real service and router.
package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/obhonesty/server/internal/api"
	"github.com/obhonesty/server/internal/ledger"
	"github.com/obhonesty/server/internal/orders"
	"github.com/obhonesty/server/internal/payment"
	"github.com/obhonesty/server/internal/service"
	"github.com/obhonesty/server/internal/snapshot"
	"github.com/obhonesty/server/internal/state"
)

const testJWTSecret = "test-secret-key"

// FakePaymentGateway is a scriptable payment gateway for API tests.
type FakePaymentGateway struct {
	mu     sync.Mutex
	status payment.Status
}

func (f *FakePaymentGateway) CreateSession(context.Context, int64, string, string) (payment.CheckoutSession, error) {
	return payment.CheckoutSession{ID: "cs_test_123", URL: "https://pay.example.com/cs_test_123"}, nil
}

func (f *FakePaymentGateway) GetStatus(context.Context, string) (payment.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == "" {
		return payment.StatusPending, nil
	}
	return f.status, nil
}

// SetStatus scripts the next poll results.
func (f *FakePaymentGateway) SetStatus(s payment.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = s
}

// TestContext holds all dependencies for tests
type TestContext struct {
	Router      *gin.Engine
	Ledger      *ledger.Fake
	Payments    *FakePaymentGateway
	State       *state.Container
	Service     service.Service
	TestUserJWT string
}

// SetupTestContext creates a new test context with initialized dependencies.
// The ledger is seeded with one user ("alice"), two catalog items and the
// admin config row.
func SetupTestContext(t *testing.T) *TestContext {
	fake := ledger.NewFake()
	fake.AddRow(ledger.UserSheet, "alice", "Alice", "Archer", "", "alice@example.com",
		"Meat", "", "", "", "")
	fake.AddRow(ledger.ItemSheet, "Beer", "2.50", "Bottle", "Alcoholic beverage")
	fake.AddRow(ledger.ItemSheet, "Cola", "1.50", "", "Food and beverage non-alcoholic")
	fake.AddRow(ledger.AdminSheet, "5.50", "17:00", "09:30")

	st := state.NewContainer()
	builder := snapshot.NewBuilder(fake)
	payments := &FakePaymentGateway{}
	reconciler := payment.NewReconciler(payments, st, 5*time.Millisecond, "eur")

	svc := service.NewDefaultService(st, builder, orders.NewService(fake), reconciler,
		testJWTSecret, 0)

	snap, degraded := builder.Build(context.Background())
	assert.False(t, degraded, "seeded fake must build a clean snapshot")
	st.SetSnapshot(snap)

	// Open a kiosk session for the seeded user
	st.Login("alice", 0)

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	gin.SetMode(gin.TestMode)
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(testJWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	return &TestContext{
		Router:      router,
		Ledger:      fake,
		Payments:    payments,
		State:       st,
		Service:     svc,
		TestUserJWT: TokenFor(t, "alice"),
	}
}

// TokenFor generates a JWT for a nick name with the test secret.
func TokenFor(t *testing.T, nick string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": nick,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(testJWTSecret))
	assert.NoError(t, err, "Failed to generate JWT token")
	return tokenString
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}

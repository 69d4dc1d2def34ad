package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/obhonesty/server/internal/metrics"
	"github.com/obhonesty/server/internal/models"
	"github.com/obhonesty/server/internal/session"
	"github.com/obhonesty/server/internal/state"
)

// ErrNoSession is returned when a checkout is attempted without a login
// session.
var ErrNoSession = errors.New("no active login session")

// CommitFunc writes the ledger fact for a confirmed payment. For a whole
// tab this is the batch paid-update; for items and signups it appends the
// row with the paid block inline.
type CommitFunc func(ctx context.Context) error

// Reconciler runs the payment confirmation state machine:
// Idle → Creating → AwaitingPayment → Paid → Committed, with Idle
// reachable from any state via close. One active session per principal.
type Reconciler struct {
	gw       Gateway
	st       *state.Container
	interval time.Duration
	currency string
}

// NewReconciler creates a reconciler polling at the given interval.
func NewReconciler(gw Gateway, st *state.Container, interval time.Duration, currency string) *Reconciler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Reconciler{gw: gw, st: st, interval: interval, currency: currency}
}

// StartCheckout opens a hosted checkout for the principal and begins
// polling for confirmation. Any prior session for the same principal is
// invalidated first, its displayed code cleared. On gateway failure the
// dialog degrades to a locally rendered placeholder carrying the amount
// and target instead of failing outright.
func (r *Reconciler) StartCheckout(ctx context.Context, nick string, kind models.CheckoutKind, description string, amount float64, commit CommitFunc) (models.PaymentSession, error) {
	if ok := r.st.WithSession(nick, func(s *session.Session) { s.ClearPayment() }); !ok {
		return models.PaymentSession{}, ErrNoSession
	}

	amountCents := int64(math.Round(amount * 100))

	// Gateway call happens outside the state lock.
	gwSession, err := r.gw.CreateSession(ctx, amountCents, r.currency, description)
	if err != nil {
		slog.Warn("checkout session creation failed, showing placeholder", "nick_name", nick, "error", err)
		payload := fmt.Sprintf("Payment unavailable. Pay €%.2f for %s at the bar.", amount, description)
		qr, qrErr := QRCodePNG(payload)
		if qrErr != nil {
			slog.Error("placeholder qr render failed", "error", qrErr)
		}
		placeholder := models.PaymentSession{Kind: kind, Description: description, Amount: amount, QRCode: qr}
		r.st.WithSession(nick, func(s *session.Session) { s.Payment = placeholder })
		return placeholder, nil
	}

	qr, err := QRCodePNG(gwSession.URL)
	if err != nil {
		slog.Error("qr render failed", "error", err)
	}

	active := models.PaymentSession{
		Kind:             kind,
		Description:      description,
		Amount:           amount,
		GatewaySessionID: gwSession.ID,
		QRCode:           qr,
	}

	var pollCtx context.Context
	ok := r.st.WithSession(nick, func(s *session.Session) {
		s.Payment = active
		pollCtx = s.BeginPoll()
	})
	if !ok {
		// Logged out while the gateway call was in flight.
		return models.PaymentSession{}, ErrNoSession
	}

	go r.poll(pollCtx, nick, commit)
	slog.Info("checkout started", "nick_name", nick, "kind", kind, "amount", amount, "session_id", gwSession.ID)
	return active, nil
}

// poll queries the gateway at a fixed interval until the session is paid,
// the session id is cleared, or the poll context is cancelled. Poll errors
// are swallowed and retried on the next tick.
func (r *Reconciler) poll(ctx context.Context, nick string, commit CommitFunc) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		ps, ok := r.st.PaymentSession(nick)
		if !ok || ps.GatewaySessionID == "" || ps.Paid {
			return
		}

		status, err := r.gw.GetStatus(ctx, ps.GatewaySessionID)
		if err != nil {
			metrics.PaymentPolls.WithLabelValues("error").Inc()
			slog.Warn("payment status poll failed", "nick_name", nick, "error", err)
			continue
		}
		if status != StatusPaid {
			metrics.PaymentPolls.WithLabelValues("pending").Inc()
			continue
		}
		metrics.PaymentPolls.WithLabelValues("paid").Inc()

		r.st.WithSession(nick, func(s *session.Session) { s.Payment.Paid = true })
		slog.Info("payment confirmed", "nick_name", nick, "session_id", ps.GatewaySessionID)

		// The payment is confirmed at the gateway; the ledger write must
		// not be lost to a dialog close racing the commit.
		if err := commit(context.WithoutCancel(ctx)); err != nil {
			slog.Error("payment commit failed", "nick_name", nick, "error", err)
		}
		return
	}
}

// CloseCheckout clears all session-scoped payment state and reports
// whether the UI should redirect home: true only when the write completed
// for a signup flow. Close-without-paying writes nothing.
func (r *Reconciler) CloseCheckout(nick string) (redirect bool, ok bool) {
	ok = r.st.WithSession(nick, func(s *session.Session) {
		redirect = s.Payment.Paid && s.Payment.Kind.SignupKind()
		s.ClearPayment()
	})
	return redirect, ok
}

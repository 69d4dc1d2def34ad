// Package snapshot materializes the external ledger into immutable
// in-memory snapshots.
package snapshot

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/obhonesty/server/internal/ledger"
	"github.com/obhonesty/server/internal/metrics"
	"github.com/obhonesty/server/internal/models"
)

// Builder reads all ledger sheets and produces a consistent snapshot.
type Builder struct {
	gw  ledger.Gateway
	now func() time.Time
}

// NewBuilder creates a Builder over the given gateway.
func NewBuilder(gw ledger.Gateway) *Builder {
	return &Builder{gw: gw, now: time.Now}
}

// Build pulls every sheet and assembles a new snapshot. It never fails: an
// unreachable sheet degrades to an empty section so the UI falls back to a
// no-backend state instead of crashing. Availability over consistency.
// The second return reports whether any sheet was unavailable.
func (b *Builder) Build(ctx context.Context) (*models.Snapshot, bool) {
	snap := models.EmptySnapshot(b.now())
	degraded := false

	userRows, err := b.gw.ReadRows(ctx, ledger.UserSheet, ledger.UserColumns)
	if err != nil {
		slog.Warn("snapshot: users sheet unavailable", "error", err)
		degraded = true
	}
	itemRows, err := b.gw.ReadRows(ctx, ledger.ItemSheet, ledger.ItemColumns)
	if err != nil {
		slog.Warn("snapshot: items sheet unavailable", "error", err)
		degraded = true
	}
	orderRows, err := b.gw.ReadRows(ctx, ledger.OrderSheet, ledger.OrderColumns)
	if err != nil {
		slog.Warn("snapshot: orders sheet unavailable", "error", err)
		degraded = true
	}
	adminRows, err := b.gw.ReadRows(ctx, ledger.AdminSheet, nil)
	if err != nil {
		slog.Warn("snapshot: admin sheet unavailable", "error", err)
		degraded = true
	}

	seen := make(map[string]bool, len(userRows))
	for _, row := range userRows {
		if row["nick_name"] == "" {
			continue // blank trailing row
		}
		u := models.UserFromRow(row)
		if seen[u.NickName] {
			slog.Warn("snapshot: duplicate nick name in users sheet, last row wins", "nick_name", u.NickName)
		}
		seen[u.NickName] = true
		snap.Users = append(snap.Users, u)
	}
	sort.SliceStable(snap.Users, func(i, j int) bool {
		return snap.Users[i].NickName < snap.Users[j].NickName
	})

	for _, row := range itemRows {
		if row["name"] == "" {
			continue
		}
		item := models.ItemFromRow(row)
		snap.Items[item.Name] = item
	}

	for i, row := range orderRows {
		// Header occupies sheet row 1, data starts at row 2. The sheet row
		// travels with the order because cell updates are positional.
		sheetRow := i + 2
		if row["order_id"] == "" {
			continue
		}
		snap.Orders = append(snap.Orders, models.OrderFromRow(row, sheetRow))
	}

	if len(adminRows) > 0 {
		snap.Admin = models.AdminConfig(adminRows[0])
	}

	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	metrics.SnapshotReloads.WithLabelValues(outcome).Inc()
	slog.Debug("snapshot built",
		"users", len(snap.Users),
		"items", len(snap.Items),
		"orders", len(snap.Orders),
		"degraded", degraded,
	)
	return snap, degraded
}

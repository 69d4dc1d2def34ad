package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/obhonesty/server/internal/ledger"
)

func seededFake() *ledger.Fake {
	fake := ledger.NewFake()
	fake.AddRow(ledger.UserSheet, "zoe", "Zoe", "Zimmer", "", "zoe@example.com", "Vegan", "", "yes", "", "")
	fake.AddRow(ledger.UserSheet, "alice", "Alice", "Archer", "", "alice@example.com", "Meat", "nuts", "", "", "")
	fake.AddRow(ledger.ItemSheet, "Beer", "2.50", "Bottle", "Alcoholic beverage")
	fake.AddRow(ledger.ItemSheet, "Cola", "1.50", "", "Food and beverage non-alcoholic")
	fake.AddRow(ledger.OrderSheet, "aaaa1111", "alice", "2026-08-28T09:00:00.000000", "Beer",
		"1", "2.5", "2.5", "", "", "", "", "Alcoholic beverage", "", "FALSE")
	fake.AddRow(ledger.OrderSheet) // blank trailing row
	fake.AddRow(ledger.OrderSheet, "bbbb2222", "zoe", "2026-08-28T10:00:00.000000", "Cola",
		"abc", "1.5", "1.5", "", "", "", "", "Food and beverage non-alcoholic", "", "TRUE")
	fake.AddRow(ledger.AdminSheet, "5.50", "17:00", "09:30")
	return fake
}

func TestBuildAssemblesSnapshot(t *testing.T) {
	b := NewBuilder(seededFake())

	snap, degraded := b.Build(context.Background())

	assert.False(t, degraded)
	assert.Len(t, snap.Users, 2)
	// Users come out sorted by nick name regardless of sheet order.
	assert.Equal(t, "alice", snap.Users[0].NickName)
	assert.Equal(t, "zoe", snap.Users[1].NickName)
	assert.True(t, snap.Users[1].Volunteer)

	assert.Len(t, snap.Items, 2)
	assert.Equal(t, 2.5, snap.Items["Beer"].Price)

	assert.Len(t, snap.Orders, 2)
	assert.Equal(t, "5.50", snap.Admin["dinner_price"])
}

func TestBuildKeepsSheetRowPositions(t *testing.T) {
	b := NewBuilder(seededFake())

	snap, _ := b.Build(context.Background())

	// The blank row between the two orders is skipped from the snapshot but
	// still occupies a sheet row; positional updates depend on that.
	assert.Equal(t, 2, snap.Orders[0].Row)
	assert.Equal(t, 4, snap.Orders[1].Row)
}

func TestBuildDegradesBadCells(t *testing.T) {
	b := NewBuilder(seededFake())

	snap, _ := b.Build(context.Background())

	assert.Equal(t, 1.0, snap.Orders[1].Quantity)
	assert.Equal(t, 1.5, snap.Orders[1].Price)
}

func TestBuildIsIdempotent(t *testing.T) {
	b := NewBuilder(seededFake())

	first, _ := b.Build(context.Background())
	second, _ := b.Build(context.Background())

	second.BuiltAt = first.BuiltAt
	assert.Equal(t, first, second)
}

func TestBuildUnavailableBackend(t *testing.T) {
	b := NewBuilder(ledger.Unavailable{})

	snap, degraded := b.Build(context.Background())

	assert.True(t, degraded)
	assert.Empty(t, snap.Users)
	assert.Empty(t, snap.Items)
	assert.Empty(t, snap.Orders)
	assert.Empty(t, snap.Admin)
}

func TestBuildDuplicateNickKeepsBoth(t *testing.T) {
	fake := seededFake()
	fake.AddRow(ledger.UserSheet, "alice", "Alice", "Other", "", "", "", "", "", "", "")
	b := NewBuilder(fake)

	snap, _ := b.Build(context.Background())

	// Both rows load; lookup resolves the conflict, not the build.
	assert.Len(t, snap.Users, 3)
	u, ok := snap.UserByNick("alice")
	assert.True(t, ok)
	assert.Equal(t, "Other", u.LastName)
}

func TestBuildSetsBuiltAt(t *testing.T) {
	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local)
	b := &Builder{gw: seededFake(), now: func() time.Time { return fixed }}

	snap, _ := b.Build(context.Background())

	assert.Equal(t, fixed, snap.BuiltAt)
}

package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/obhonesty/server/internal/models"
	"github.com/obhonesty/server/internal/session"
)

func TestSnapshotSwap(t *testing.T) {
	c := NewContainer()
	assert.Empty(t, c.Snapshot().Users)

	next := models.EmptySnapshot(time.Now())
	next.Users = []models.User{{NickName: "alice"}}
	c.SetSnapshot(next)

	assert.Len(t, c.Snapshot().Users, 1)
}

func TestPatchServedSwapsCopy(t *testing.T) {
	c := NewContainer()
	snap := models.EmptySnapshot(time.Now())
	snap.Orders = []models.Order{
		{OrderID: "aaaa1111", Served: ""},
		{OrderID: "bbbb2222", Served: ""},
	}
	c.SetSnapshot(snap)
	before := c.Snapshot()

	c.PatchServed("aaaa1111", models.TrueCell)

	after := c.Snapshot()
	assert.NotSame(t, before, after)
	assert.Equal(t, models.TrueCell, after.Orders[0].Served)
	assert.Equal(t, "", after.Orders[1].Served)
	// The previously published snapshot is untouched.
	assert.Equal(t, "", before.Orders[0].Served)
}

func TestLoginLogout(t *testing.T) {
	c := NewContainer()
	assert.False(t, c.Active("alice"))

	c.Login("alice", 0)
	assert.True(t, c.Active("alice"))

	c.Logout("alice")
	assert.False(t, c.Active("alice"))
}

func TestIdleTimeoutForcesLogout(t *testing.T) {
	c := NewContainer()
	c.Login("alice", 10*time.Millisecond)

	assert.Eventually(t, func() bool { return !c.Active("alice") },
		time.Second, time.Millisecond)
}

func TestTouchSuppressesForcedLogout(t *testing.T) {
	c := NewContainer()
	c.Login("alice", 20*time.Millisecond)
	c.Touch("alice")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, c.Active("alice"))
}

func TestReloginReplacesSession(t *testing.T) {
	c := NewContainer()
	c.Login("alice", 0)
	c.WithSession("alice", func(s *session.Session) {
		s.Payment = models.PaymentSession{Description: "1x Beer"}
	})

	c.Login("alice", 0)

	ps, ok := c.PaymentSession("alice")
	assert.True(t, ok)
	assert.False(t, ps.Active())
}

func TestWithSessionMissing(t *testing.T) {
	c := NewContainer()
	called := false
	ok := c.WithSession("nobody", func(*session.Session) { called = true })
	assert.False(t, ok)
	assert.False(t, called)
}

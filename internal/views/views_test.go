package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/obhonesty/server/internal/models"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local)

func wireTime(t time.Time) string {
	return t.Format(models.WireTimeFormat)
}

func testSnapshot() *models.Snapshot {
	s := models.EmptySnapshot(testNow)
	s.Users = []models.User{
		{NickName: "alice", FirstName: "Alice", LastName: "Archer", Diet: models.DietMeat},
		{NickName: "vera", FirstName: "Vera", LastName: "Volt", Diet: models.DietVegan, Volunteer: true},
	}
	s.Orders = []models.Order{
		{
			OrderID: "order001", UserNickName: "alice", Item: "Beer",
			Time: wireTime(testNow.Add(-2 * time.Hour)), Total: 2.5, Price: 2.5,
			TaxCategory: "Alcoholic beverage", Paid: "FALSE",
		},
		{
			OrderID: "order002", UserNickName: "alice", Item: "Cola",
			Time: wireTime(testNow.Add(-1 * time.Hour)), Total: 1.5, Price: 1.5,
			TaxCategory: "Food and beverage non-alcoholic", Paid: "TRUE",
		},
		{
			OrderID: "order003", UserNickName: "alice", Item: "Cola",
			Time: wireTime(testNow.Add(-30 * time.Minute)), Total: 1.5, Price: 1.5,
			TaxCategory: "Food and beverage non-alcoholic", Paid: "FALSE",
		},
	}
	return s
}

func TestDebtSumsUnpaidOnly(t *testing.T) {
	s := testSnapshot()
	assert.Equal(t, 4.0, Debt(s, "alice"))
	assert.Equal(t, 0.0, Debt(s, "vera"))
}

func TestUserOrdersFiltersAndFormats(t *testing.T) {
	s := testSnapshot()

	got := UserOrders(s, "alice")

	assert.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, "order003", got[0].OrderID)
	assert.Equal(t, "order001", got[1].OrderID)
	assert.Equal(t, testNow.Add(-30*time.Minute).Format(models.DisplayTimeFormat), got[0].Time)
}

func TestUserOrdersKeepsUnparsableTime(t *testing.T) {
	s := testSnapshot()
	s.Orders = append(s.Orders, models.Order{
		OrderID: "order004", UserNickName: "alice", Time: "garbage", Total: 1.0, Paid: "FALSE",
	})

	got := UserOrders(s, "alice")

	assert.Len(t, got, 3)
	found := false
	for _, o := range got {
		if o.OrderID == "order004" {
			found = true
			assert.Equal(t, "garbage", o.Time)
		}
	}
	assert.True(t, found)
}

func TestBreakfastSignupsTodayOnly(t *testing.T) {
	s := testSnapshot()
	s.Orders = append(s.Orders,
		models.Order{
			OrderID: "bfast001", UserNickName: "alice", Item: models.BreakfastSignupItem,
			Time: wireTime(testNow.Add(-3 * time.Hour)), Receiver: "ALICE ARCHER", Diet: "Porridge",
		},
		models.Order{
			OrderID: "bfast002", UserNickName: "alice", Item: models.BreakfastSignupItem,
			Time: wireTime(testNow.AddDate(0, 0, -1)), Receiver: "ALICE ARCHER", Diet: "Porridge",
		},
	)

	got := BreakfastSignups(s, testNow)

	assert.Len(t, got, 1)
	assert.Equal(t, "bfast001", got[0].OrderID)
	assert.Equal(t, testNow.Add(-3*time.Hour).Format("15:04:05"), got[0].Time)
}

func TestDinnerSignupsSynthesizesVolunteers(t *testing.T) {
	s := testSnapshot()
	s.Orders = append(s.Orders, models.Order{
		OrderID: "din001", UserNickName: "alice", Item: models.DinnerSignupItem,
		Time: wireTime(testNow.Add(-4 * time.Hour)), Receiver: "ALICE ARCHER", Diet: models.DietMeat,
	})

	got := DinnerSignups(s, testNow)

	assert.Len(t, got, 2)
	// Volunteer rows carry the "yes" comment and therefore sort last.
	assert.Equal(t, "ALICE ARCHER", got[0].Receiver)
	assert.Equal(t, "VERA VOLT", got[1].Receiver)
	assert.Equal(t, models.VolunteerDinnerItem, got[1].Item)
	assert.Equal(t, "yes", got[1].Comment)
	assert.Equal(t, 1.0, got[1].Quantity)
}

func TestDinnerCounts(t *testing.T) {
	s := testSnapshot()
	s.Orders = append(s.Orders,
		models.Order{
			OrderID: "din001", UserNickName: "alice", Item: models.DinnerSignupItem,
			Time: wireTime(testNow), Receiver: "ALICE ARCHER", Diet: "meat",
		},
		models.Order{
			OrderID: "din002", UserNickName: "alice", Item: models.DinnerSignupItem,
			Time: wireTime(testNow), Receiver: "BOB BAKER", Diet: "Vegetarian",
		},
	)

	counts := DinnerCounts(s, testNow)

	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 1, counts.Meat)
	assert.Equal(t, 1, counts.Vegetarian)
	assert.Equal(t, 1, counts.Vegan)
	assert.Equal(t, 1, counts.Volunteers)
	assert.Equal(t, 1, counts.VeganVolunteers)
	assert.Equal(t, 0, counts.MeatVolunteers)
}

func TestTaxTotalsSpanAllOrders(t *testing.T) {
	s := testSnapshot()

	totals := TaxTotals(s)

	assert.Equal(t, 2.5, totals["Alcoholic beverage"])
	// Paid and unpaid rows both count.
	assert.Equal(t, 3.0, totals["Food and beverage non-alcoholic"])
}

func TestSignupAvailable(t *testing.T) {
	admin := models.AdminConfig{"dinner_signup_deadline": "17:00"}

	before := time.Date(2026, 8, 28, 16, 59, 0, 0, time.Local)
	after := time.Date(2026, 8, 28, 17, 0, 0, 0, time.Local)

	assert.True(t, DinnerAvailable(admin, before))
	assert.False(t, DinnerAvailable(admin, after))
}

func TestSignupAvailableDefaultDeadline(t *testing.T) {
	admin := models.AdminConfig{}

	// Missing deadline falls back to 22:59.
	assert.True(t, BreakfastAvailable(admin, time.Date(2026, 8, 28, 22, 58, 0, 0, time.Local)))
	assert.False(t, BreakfastAvailable(admin, time.Date(2026, 8, 28, 23, 0, 0, 0, time.Local)))
}

func TestSignupAvailableUnparsableDeadline(t *testing.T) {
	admin := models.AdminConfig{"dinner_signup_deadline": "whenever"}

	assert.True(t, DinnerAvailable(admin, time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local)))
	assert.False(t, DinnerAvailable(admin, time.Date(2026, 8, 28, 23, 30, 0, 0, time.Local)))
}

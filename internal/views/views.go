// Package views computes read-only aggregates from a ledger snapshot.
// Every function is a pure function of the snapshot and the caller's clock,
// so views recompute for free whenever the snapshot is swapped.
package views

import (
	"sort"
	"time"

	"github.com/obhonesty/server/internal/models"
)

// timeLayouts accepted for order timestamps. Rows are written in ISO-8601
// by the origin clock, but hand-edited cells show up in the wild.
var timeLayouts = []string{
	models.WireTimeFormat,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseOrderTime parses an order timestamp cell.
func ParseOrderTime(s string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// Debt returns the sum of totals over the principal's unpaid orders.
func Debt(s *models.Snapshot, nick string) float64 {
	total := 0.0
	for _, o := range UserOrders(s, nick) {
		total += o.Total
	}
	return total
}

// UserOrders returns the principal's unpaid orders, newest first, with
// timestamps reformatted for display. A timestamp that fails to parse is
// passed through raw; a display problem never drops a row.
func UserOrders(s *models.Snapshot, nick string) []models.Order {
	var filtered []models.Order
	for _, o := range s.Orders {
		if o.UserNickName != nick || o.PaidBool() {
			continue
		}
		if t, err := ParseOrderTime(o.Time); err == nil {
			o.Time = t.Format(models.DisplayTimeFormat)
		}
		filtered = append(filtered, o)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Time > filtered[j].Time
	})
	return filtered
}

// sameDay reports whether t falls on the same local calendar day as now.
func sameDay(t, now time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// BreakfastSignups returns today's breakfast signup rows, newest first.
// Rows with unparsable timestamps cannot be "today" and are excluded.
func BreakfastSignups(s *models.Snapshot, now time.Time) []models.Order {
	var signups []models.Order
	for _, o := range s.Orders {
		t, err := ParseOrderTime(o.Time)
		if err != nil {
			continue
		}
		if o.Item != models.BreakfastSignupItem || !sameDay(t, now) {
			continue
		}
		o.Time = t.Format("15:04:05")
		signups = append(signups, o)
	}
	sort.SliceStable(signups, func(i, j int) bool {
		return signups[i].Time > signups[j].Time
	})
	return signups
}

// DinnerSignups returns today's dinner signup rows plus one synthesized
// zero-price row per volunteer principal. Volunteers eat for free as a
// policy fact, not a ledger row, so the view materializes them here. The
// list is stably sorted by receiver, then diet, then comment; the comment
// key is applied last and therefore dominates.
func DinnerSignups(s *models.Snapshot, now time.Time) []models.Order {
	var signups []models.Order
	for _, o := range s.Orders {
		t, err := ParseOrderTime(o.Time)
		if err != nil {
			continue
		}
		if o.Item != models.DinnerSignupItem || !sameDay(t, now) {
			continue
		}
		signups = append(signups, o)
	}

	for _, u := range s.Users {
		if !u.Volunteer {
			continue
		}
		signups = append(signups, models.Order{
			UserNickName: u.NickName,
			Item:         models.VolunteerDinnerItem,
			Quantity:     1.0,
			Receiver:     u.FullName(),
			Diet:         u.Diet,
			Allergies:    u.Allergies,
			Comment:      "yes",
		})
	}

	sort.SliceStable(signups, func(i, j int) bool {
		return signups[i].Receiver < signups[j].Receiver
	})
	sort.SliceStable(signups, func(i, j int) bool {
		return signups[i].Diet < signups[j].Diet
	})
	sort.SliceStable(signups, func(i, j int) bool {
		return signups[i].Comment < signups[j].Comment
	})
	return signups
}

// DinnerCounts aggregates the dinner signup view by diet and by
// volunteer-vs-guest, using normalized string comparison throughout.
func DinnerCounts(s *models.Snapshot, now time.Time) models.DinnerCounts {
	counts := models.DinnerCounts{}
	for _, o := range DinnerSignups(s, now) {
		counts.Total++
		volunteer := models.FoldEqual(o.Item, models.VolunteerDinnerItem)
		if volunteer {
			counts.Volunteers++
		}
		switch {
		case models.FoldEqual(o.Diet, models.DietVegan):
			counts.Vegan++
			if volunteer {
				counts.VeganVolunteers++
			}
		case models.FoldEqual(o.Diet, models.DietVegetarian):
			counts.Vegetarian++
			if volunteer {
				counts.VegetarianVolunteers++
			}
		case models.FoldEqual(o.Diet, models.DietMeat):
			counts.Meat++
			if volunteer {
				counts.MeatVolunteers++
			}
		}
	}
	return counts
}

// TaxTotals sums unit price per tax category across every order in the
// snapshot. Not date-filtered: this is a running total since ledger
// inception.
func TaxTotals(s *models.Snapshot) map[string]float64 {
	totals := make(map[string]float64)
	for _, o := range s.Orders {
		totals[o.TaxCategory] += o.Price
	}
	return totals
}

// defaultSignupDeadline applies when the admin config is missing or holds
// an unparsable value.
const defaultSignupDeadline = "22:59"

// SignupAvailable compares the local time of day against the configured
// HH:MM deadline for the given admin key.
func SignupAvailable(admin models.AdminConfig, key string, now time.Time) bool {
	raw, ok := admin[key]
	if !ok {
		raw = defaultSignupDeadline
	}
	deadline, err := time.Parse(models.SignupDeadlineLayout, raw)
	if err != nil {
		deadline, _ = time.Parse(models.SignupDeadlineLayout, defaultSignupDeadline)
	}
	deadlineMinutes := deadline.Hour()*60 + deadline.Minute()
	nowMinutes := now.Hour()*60 + now.Minute()
	return nowMinutes < deadlineMinutes
}

// BreakfastAvailable reports whether the breakfast signup window is open.
func BreakfastAvailable(admin models.AdminConfig, now time.Time) bool {
	return SignupAvailable(admin, "breakfast_signup_deadline", now)
}

// DinnerAvailable reports whether the dinner signup window is open.
func DinnerAvailable(admin models.AdminConfig, now time.Time) bool {
	return SignupAvailable(admin, "dinner_signup_deadline", now)
}

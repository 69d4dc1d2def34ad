package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruthy(t *testing.T) {
	assert.True(t, Truthy("yes"))
	assert.True(t, Truthy("Yes"))
	assert.True(t, Truthy(" TRUE "))
	assert.True(t, Truthy("1"))
	assert.True(t, Truthy("y"))

	assert.False(t, Truthy(""))
	assert.False(t, Truthy("no"))
	assert.False(t, Truthy("maybe"))
}

func TestNormalizeFold(t *testing.T) {
	assert.Equal(t, "packedlunch", NormalizeFold("Packed Lunch!"))
	assert.Equal(t, "dinnersignupvolunteer", NormalizeFold("Dinner sign-up (volunteer)"))
	assert.True(t, FoldEqual("Vegan", "vegan "))
	assert.False(t, FoldEqual("Vegan", "Vegetarian"))
}

func TestOrderFromRowDegradesBadNumbers(t *testing.T) {
	o := OrderFromRow(map[string]string{
		"order_id": "abc12345",
		"quantity": "abc",
		"price":    "3.50",
		"total":    "not-a-number",
	}, 7)

	assert.Equal(t, 1.0, o.Quantity)
	assert.Equal(t, 3.50, o.Price)
	assert.Equal(t, 0.0, o.Total)
	assert.Equal(t, 7, o.Row)
}

func TestPaidBoolIsLiteral(t *testing.T) {
	assert.True(t, Order{Paid: "TRUE"}.PaidBool())
	assert.False(t, Order{Paid: "true"}.PaidBool())
	assert.False(t, Order{Paid: "yes"}.PaidBool())
	assert.False(t, Order{Paid: ""}.PaidBool())
}

func TestUserByNickLastWins(t *testing.T) {
	s := EmptySnapshot(time.Now())
	s.Users = []User{
		{NickName: "alice", Email: "first@example.com"},
		{NickName: "bob"},
		{NickName: "alice", Email: "second@example.com"},
	}

	u, ok := s.UserByNick("alice")
	assert.True(t, ok)
	assert.Equal(t, "second@example.com", u.Email)

	_, ok = s.UserByNick("carol")
	assert.False(t, ok)
}

func TestFullNameIsUpperCased(t *testing.T) {
	u := User{FirstName: " John ", LastName: "doe"}
	assert.Equal(t, "JOHN DOE", u.FullName())
}

func TestAdminConfigFloatOr(t *testing.T) {
	admin := AdminConfig{"dinner_price": "5.50", "broken": "x"}
	assert.Equal(t, 5.50, admin.FloatOr("dinner_price", 0.0))
	assert.Equal(t, 2.0, admin.FloatOr("broken", 2.0))
	assert.Equal(t, 2.0, admin.FloatOr("missing", 2.0))
}

func TestCheckoutKindSignup(t *testing.T) {
	assert.True(t, CheckoutDinner.SignupKind())
	assert.True(t, CheckoutBreakfast.SignupKind())
	assert.False(t, CheckoutItem.SignupKind())
	assert.False(t, CheckoutTab.SignupKind())
}

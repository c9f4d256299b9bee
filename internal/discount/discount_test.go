package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"STAFF", 50},
		{"staff", 50},
		{" Staff ", 50},
		{"STUDENT", 5},
		{"student", 5},
		{"", 0},
		{"bogus", 0},
		{"STAFFSTUDENT", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Resolve(tt.code), "code %q", tt.code)
	}
}

func TestApply(t *testing.T) {
	sub := decimal.RequireFromString("8.00")

	assert.True(t, Apply(sub, 0).Equal(sub))
	assert.True(t, Apply(sub, 5).Equal(decimal.RequireFromString("7.60")))
	assert.True(t, Apply(sub, 50).Equal(decimal.RequireFromString("4.00")))
}

func TestApply_MatchesFormula(t *testing.T) {
	for _, s := range []string{"0", "0.01", "3.33", "17.45", "123.99"} {
		sub := decimal.RequireFromString(s)
		for _, pct := range []int{0, 5, 50} {
			want := sub.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(pct)).Div(decimal.NewFromInt(100))))
			assert.True(t, Apply(sub, pct).Equal(want), "%s at %d%%", s, pct)
		}
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(0))
	assert.True(t, Valid(5))
	assert.True(t, Valid(50))
	assert.False(t, Valid(10))
}

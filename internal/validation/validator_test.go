package validation

import (
	"testing"

	apperrors "estatehub/internal/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Role     string `json:"role" validate:"omitempty,oneof=seeker agent"`
}

type priced struct {
	Price decimal.Decimal  `json:"price" validate:"gt=0"`
	Next  *decimal.Decimal `json:"next" validate:"omitempty,gt=0"`
}

func TestStruct(t *testing.T) {
	neg := decimal.NewFromInt(-1)

	tests := []struct {
		name    string
		input   interface{}
		wantErr string
	}{
		{"valid", signup{Email: "a@b.co", Password: "s3cret!pw", Role: "agent"}, ""},
		{"missing email", signup{Password: "s3cret!pw"}, "email is required"},
		{"bad email", signup{Email: "nope", Password: "s3cret!pw"}, "email must be a valid email address"},
		{"weak password", signup{Email: "a@b.co", Password: "short"}, "password must be at least 8 characters long, contain a number, contain a special character"},
		{"bad phone", signup{Email: "a@b.co", Password: "s3cret!pw", Phone: "12ab"}, "phone must be a valid phone number"},
		{"bad role", signup{Email: "a@b.co", Password: "s3cret!pw", Role: "admin"}, "role must be one of [seeker agent]"},
		{"positive price", priced{Price: decimal.RequireFromString("49.99")}, ""},
		{"zero price", priced{Price: decimal.Zero}, "price must be greater than 0"},
		{"negative optional price", priced{Price: decimal.NewFromInt(1), Next: &neg}, "next must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestPasswordProblems(t *testing.T) {
	assert.Empty(t, PasswordProblems("correct-horse-9"))
	assert.Equal(t, []string{"contain a letter"}, PasswordProblems("12345678!"))
}

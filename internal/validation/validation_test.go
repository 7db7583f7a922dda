package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{name: "plain", email: "student@witte.edu.ru", valid: true},
		{name: "subdomain", email: "a.b@mail.example.com", valid: true},
		{name: "missing at", email: "student.witte.edu.ru", valid: false},
		{name: "missing dot in domain", email: "student@localhost", valid: false},
		{name: "spaces", email: "stu dent@witte.ru", valid: false},
		{name: "empty string", email: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.valid {
				t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}

func TestPositiveAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "integer", raw: "120000", want: "120000"},
		{name: "comma separator", raw: "650,50", want: "650.5"},
		{name: "zero", raw: "0", wantErr: true},
		{name: "negative", raw: "-10", wantErr: true},
		{name: "garbage", raw: "abc", wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "sub-kopeck", raw: "1.005", wantErr: true},
		{name: "upper bound", raw: "9999999999.99", want: "9999999999.99"},
		{name: "above upper bound", raw: "10000000000", wantErr: true},
		{name: "exponent overflow", raw: "1e20", wantErr: true},
		{name: "int64 overflow in kopecks", raw: "100000000000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PositiveAmount("price", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestEmail_ReportsField(t *testing.T) {
	err := Email("email", "broken")
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Field)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestFirst(t *testing.T) {
	assert.NoError(t, First(nil, nil))
	err := First(nil, Required("name", ""), Required("email", ""))
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)
}

func TestMinLength(t *testing.T) {
	assert.NoError(t, MinLength("password", "Пароль", 6))
	assert.ErrorIs(t, MinLength("password", "abc", 6), ErrInvalid)
}

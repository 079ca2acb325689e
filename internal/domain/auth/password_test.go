package auth

import (
	"errors"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
	}{
		{name: "valid password", password: "Stronger123"},
		{name: "too short", password: "S1hort", want: ErrPasswordTooShort},
		{name: "missing uppercase", password: "longpassword1", want: ErrPasswordNeedsUpper},
		{name: "missing lowercase", password: "LONGPASSWORD1", want: ErrPasswordNeedsLower},
		{name: "missing number", password: "LongPassword", want: ErrPasswordNeedsDigit},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want != nil && !IsPasswordPolicyError(err) {
				t.Fatal("expected policy error classification")
			}
		})
	}
}

package auth

import (
	"errors"
	"unicode"
)

var (
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrPasswordNeedsUpper = errors.New("password must contain an uppercase letter")
	ErrPasswordNeedsLower = errors.New("password must contain a lowercase letter")
	ErrPasswordNeedsDigit = errors.New("password must contain a number")
)

const MinPasswordLength = 8

func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return ErrPasswordNeedsUpper
	}
	if !lower {
		return ErrPasswordNeedsLower
	}
	if !digit {
		return ErrPasswordNeedsDigit
	}
	return nil
}

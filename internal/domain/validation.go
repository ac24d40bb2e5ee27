package domain

import (
	"regexp"
	"strings"
	"time"
)

// ValidateBooking checks a candidate stay. Rules run in order and the first failure wins.
func ValidateBooking(checkIn, checkOut time.Time, guests, rooms int) error {
	if !checkOut.After(checkIn) {
		return NewValidationError(InvalidDateRange, "check-out date must be after check-in date")
	}
	if guests < 1 {
		return NewValidationError(InvalidGuestCount, "please select at least 1 guest")
	}
	if rooms < 1 {
		return NewValidationError(InvalidRoomCount, "please select at least 1 room")
	}
	return nil
}

// AdjustCheckOut moves check-out to the day after check-in when a newly picked
// check-in lands on or after the current check-out.
func AdjustCheckOut(checkIn, checkOut time.Time) time.Time {
	if !checkIn.Before(checkOut) {
		return checkIn.AddDate(0, 0, 1)
	}
	return checkOut
}

var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

const MinPasswordLen = 6

// SignUpForm is the raw sign-up input.
type SignUpForm struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
	Phone           string
}

// ValidateSignUp applies the sign-up form rules in the order the form shows them.
func ValidateSignUp(f SignUpForm) error {
	if strings.TrimSpace(f.FirstName) == "" || strings.TrimSpace(f.LastName) == "" {
		return NewValidationError(InvalidName, "please enter your full name")
	}
	email := strings.TrimSpace(f.Email)
	if email == "" {
		return NewValidationError(InvalidEmail, "please enter an email address")
	}
	if !emailRe.MatchString(email) {
		return NewValidationError(InvalidEmail, "please enter a valid email address")
	}
	if len(f.Password) < MinPasswordLen {
		return NewValidationError(WeakPassword, "password must be at least 6 characters long")
	}
	if f.Password != f.ConfirmPassword {
		return NewValidationError(PasswordMismatch, "passwords do not match")
	}
	return nil
}

// ValidateDisplayName trims the name and rejects blanks.
func ValidateDisplayName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", NewValidationError(InvalidName, "name cannot be empty")
	}
	return n, nil
}

package utils

import (
	"regexp"
	"time"
)

// ValidateEmail takes an email string as input and returns a boolean indicating whether the input is a valid email address.
func ValidateEmail(email string) bool {
	const emailPattern = `^(?i)[a-z0-9._%+\-]+@(?:[a-z0-9\-]+\.)+[a-z]{2,}$`
	matched, err := regexp.MatchString(emailPattern, email)
	return err == nil && matched
}

// ValidatePassword takes a password string as input and returns a boolean indicating whether the input is a valid password.
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	containsLetter, _ := regexp.MatchString(`[a-zA-Z]`, password)
	containsNumber, _ := regexp.MatchString(`[0-9]`, password)
	return containsLetter && containsNumber
}

// ValidateTimezone reports whether the input names a loadable IANA timezone.
// The empty string is valid and means UTC.
func ValidateTimezone(tz string) bool {
	if tz == "" {
		return true
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ValidateRating reports whether a user-supplied rating is either unset (zero)
// or on the 1 to 5 scale.
func ValidateRating(rating int) bool {
	return rating == 0 || (rating >= 1 && rating <= 5)
}

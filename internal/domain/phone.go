package domain

import "regexp"

// Mainland mobile numbers: 11 digits, 1[3-9] prefix.
var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// ValidatePhoneNumber reports whether the given string is a well-formed
// mobile phone number.
func ValidatePhoneNumber(phone string) bool {
	return phonePattern.MatchString(phone)
}

// MaskPhoneNumber obscures the middle digits of a phone number for
// display and logging, e.g. 138****8000. Anything that is not a
// well-formed phone number is returned unchanged.
func MaskPhoneNumber(phone string) string {
	if !ValidatePhoneNumber(phone) {
		return phone
	}
	return phone[:3] + "****" + phone[7:]
}

package intake

import "regexp"

var (
	phonePattern   = regexp.MustCompile(`^\+?\d{10,13}$`)
	dobPattern     = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidPhone accepts an optional leading + followed by 10 to 13 digits.
func ValidPhone(raw string) bool {
	return phonePattern.MatchString(raw)
}

// ValidDOB checks the DD-MM-YYYY shape only. Calendar validity is not
// checked, so 99-99-9999 passes.
func ValidDOB(raw string) bool {
	return dobPattern.MatchString(raw)
}

// ValidPincode accepts exactly six digits.
func ValidPincode(raw string) bool {
	return pincodePattern.MatchString(raw)
}

// ValidEmail is a permissive local@domain.tld check.
func ValidEmail(raw string) bool {
	return emailPattern.MatchString(raw)
}

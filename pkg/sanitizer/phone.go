package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	supportedRegions = []string{
		"IN",
		"US",
	}
)

// NormalizePhone returns the E.164 form of phone, or "" when it cannot
// be parsed in any supported region. Phone equality checks must compare
// normalized forms only.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	for _, region := range supportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}

// SamePhone reports whether two raw phone strings normalize to the same
// E.164 number. Two unparseable inputs never match.
func SamePhone(a, b string) bool {
	na := NormalizePhone(a)
	if na == "" {
		return false
	}
	return na == NormalizePhone(b)
}

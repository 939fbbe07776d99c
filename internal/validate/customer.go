package validate

import (
	"fmt"
	"strings"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
)

// Customer checks a customer's fields.
func Customer(c models.Customer) Result {
	var r Result

	switch n := len(c.Name); {
	case n == 0:
		r.add("name", CodeRequired, "name is required")
	case n < 2 || n > 100:
		r.add("name", CodeOutOfRange, "name must be 2-100 characters")
	}

	if c.Email == "" {
		r.add("email", CodeRequired, "email is required")
	} else if !ValidEmail(c.Email) {
		r.add("email", CodeInvalidFormat, "email must be a valid address")
	}

	if c.Phone == "" {
		r.add("phone", CodeRequired, "phone is required")
	} else if !validPhone(c.Phone) {
		r.add("phone", CodeInvalidFormat, "phone must have 10 digits, or 10-15 with a country code")
	}

	if !c.LeadStatus.Valid() {
		r.add("lead_status", CodeInvalidFormat, fmt.Sprintf("unknown lead status %q", c.LeadStatus))
	}

	return r
}

// validPhone normalizes to digits only and accepts exactly 10 digits
// (domestic) or 10-15 digits (international with a country code).
func validPhone(s string) bool {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		} else if !strings.ContainsRune(" ()-+.", r) {
			return false
		}
	}
	return n == 10 || (n >= 10 && n <= 15)
}

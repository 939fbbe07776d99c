package validate

import "github.com/mrmoe28/solarscheduler-sub001/internal/models"

// User checks an account's profile fields. The password itself is the
// hashing collaborator's concern; only its presence is checked at signup.
func User(u models.User) Result {
	var r Result

	if u.Email == "" {
		r.add("email", CodeRequired, "email is required")
	} else if !ValidEmail(u.Email) {
		r.add("email", CodeInvalidFormat, "email must be a valid address")
	}

	switch n := len(u.FullName); {
	case n == 0:
		r.add("full_name", CodeRequired, "full name is required")
	case n > 100:
		r.add("full_name", CodeOutOfRange, "full name must be at most 100 characters")
	}

	if len(u.CompanyName) > 100 {
		r.add("company_name", CodeOutOfRange, "company name must be at most 100 characters")
	}

	return r
}

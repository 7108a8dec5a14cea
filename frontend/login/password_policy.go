package login

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minPasswordLength = 12

// ValidatePasswordPolicy requires minPasswordLength runes drawn from upper,
// lower, digit and symbol classes.
func ValidatePasswordPolicy(password string) error {
	if n := utf8.RuneCountInString(password); n < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	classes := []struct {
		name string
		in   func(rune) bool
	}{
		{"an upper case letter", unicode.IsUpper},
		{"a lower case letter", unicode.IsLower},
		{"a digit", unicode.IsDigit},
		{"a symbol", func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }},
	}
	var missing []string
	for _, c := range classes {
		if strings.IndexFunc(password, c.in) < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("password must include %s", strings.Join(missing, ", "))
	}
	return nil
}

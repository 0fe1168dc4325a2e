// Package validate holds the field format rules for registration and payments.
package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	usernamePattern      = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	fullNamePattern      = regexp.MustCompile(`^[a-zA-Z\s]{3,50}$`)
	idNumberPattern      = regexp.MustCompile(`^[0-9]{6,13}$`)
	accountNumberPattern = regexp.MustCompile(`^[0-9]{6,20}$`)

	amountPattern       = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	currencyPattern     = regexp.MustCompile(`^[A-Z]{3}$`)
	payeeAccountPattern = regexp.MustCompile(`^[A-Z0-9]{5,34}$`)
	swiftCodePattern    = regexp.MustCompile(`^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`)

	// MaxAmount is the largest value the NUMERIC(18,2) amount column holds.
	MaxAmount = decimal.RequireFromString("9999999999999999.99")
)

// Password policy: at least 8 characters with one lowercase, one uppercase
// and one digit. Symbols are allowed but not required.
const (
	minPasswordLength = 8
	minLowercase      = 1
	minUppercase      = 1
	minDigits         = 1
)

// Error is a client-facing validation failure.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func fail(field, message string) error {
	return &Error{Field: field, Message: message}
}

// Registration checks the registration fields in order and returns the first failure.
func Registration(username, fullName, idNumber, accountNumber, password string) error {
	if !usernamePattern.MatchString(username) {
		return fail("username", "Invalid username")
	}
	if !fullNamePattern.MatchString(fullName) {
		return fail("fullName", "Invalid full name")
	}
	if !idNumberPattern.MatchString(idNumber) {
		return fail("idNumber", "Invalid ID number")
	}
	if !accountNumberPattern.MatchString(accountNumber) {
		return fail("accountNumber", "Invalid account number")
	}
	if !StrongPassword(password) {
		return fail("password", "Password too weak (must include uppercase, lowercase, number)")
	}
	return nil
}

// Payment checks the payment fields in order and returns the first failure.
func Payment(amount, currency, payeeAccount, swiftCode string) error {
	if _, err := Amount(amount); err != nil {
		return err
	}
	if !currencyPattern.MatchString(currency) {
		return fail("currency", "Invalid currency")
	}
	if !payeeAccountPattern.MatchString(payeeAccount) {
		return fail("payeeAccount", "Invalid payee account")
	}
	if !swiftCodePattern.MatchString(swiftCode) {
		return fail("swiftCode", "Invalid SWIFT code")
	}
	return nil
}

// Amount parses a strictly formatted positive amount with at most two fraction digits.
func Amount(raw string) (decimal.Decimal, error) {
	if !amountPattern.MatchString(raw) {
		return decimal.Decimal{}, fail("amount", "Invalid amount")
	}
	value, err := decimal.NewFromString(raw)
	if err != nil || !value.IsPositive() || value.GreaterThan(MaxAmount) {
		return decimal.Decimal{}, fail("amount", "Invalid amount")
	}
	return value, nil
}

// StrongPassword counts ASCII letters and digits only.
func StrongPassword(password string) bool {
	if len([]rune(password)) < minPasswordLength {
		return false
	}
	var lower, upper, digits int
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower++
		case r >= 'A' && r <= 'Z':
			upper++
		case r >= '0' && r <= '9':
			digits++
		}
	}
	return lower >= minLowercase && upper >= minUppercase && digits >= minDigits
}

// Sanitize trims the value and drops NUL and other control characters.
// Queries are parameterized, so this only guards the stored text itself.
func Sanitize(value string) string {
	value = strings.TrimSpace(value)
	if strings.IndexFunc(value, unicode.IsControl) < 0 {
		return value
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}

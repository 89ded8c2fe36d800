package errors

import (
	"net/mail"
	"strconv"
	"strings"
	"unicode"
)

// ParseRecipients splits a comma-separated recipient list, trims each entry
// and validates it as an RFC 5322 address. Empty entries are dropped.
//
// The validation rules are intentionally conservative:
//   - At least one address
//   - No control characters (header injection)
//   - Each entry must parse with net/mail
func ParseRecipients(list string) ([]string, error) {
	var out []string
	for _, raw := range strings.Split(list, ",") {
		addr := strings.TrimSpace(raw)
		if addr == "" {
			continue
		}
		if err := ValidateAddress(addr); err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	if len(out) == 0 {
		return nil, New(ErrCodeInvalidInput, "no recipients given")
	}
	return out, nil
}

// ValidateAddress validates a single email address.
func ValidateAddress(addr string) error {
	if addr == "" {
		return New(ErrCodeInvalidInput, "address cannot be empty")
	}
	for _, r := range addr {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "address contains invalid control characters")
		}
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid address %q", addr)
	}
	return nil
}

// ParseInt converts a layout field to an integer. The field name is used in
// the error message so the user knows which input to fix.
func ParseInt(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, New(ErrCodeInvalidNumber, "%s must be an integer, got %q", field, value)
	}
	return n, nil
}

// ValidatePort validates a TCP port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return New(ErrCodeConfig, "port %d out of range (1-65535)", port)
	}
	return nil
}

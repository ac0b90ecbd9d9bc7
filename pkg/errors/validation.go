package errors

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// maxIdentifierLength bounds employee ids, period keys and similar tokens.
const maxIdentifierLength = 128

// ValidateIdentifier checks an employee id, period key or similar token
// taken from a payload. Identifiers end up in export filenames and store
// queries, so they must be non-blank, at most 128 bytes, and free of
// control characters and path separators. field names the value in the
// returned error.
func ValidateIdentifier(field, value string) error {
	switch {
	case strings.TrimSpace(value) == "":
		return Invalid(field, "%s is required", field)
	case len(value) > maxIdentifierLength:
		return Invalid(field, "%s too long (max %d characters)", field, maxIdentifierLength)
	case strings.IndexFunc(value, unicode.IsControl) >= 0:
		return Invalid(field, "%s contains control characters", field)
	case strings.ContainsAny(value, `/\`):
		return Invalid(field, "%s cannot contain path separators", field)
	}
	return nil
}

// ValidateReportID checks that id is a canonical UUID as issued by the store.
func ValidateReportID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "report id cannot be empty")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return New(ErrCodeInvalidInput, "invalid report id: %q", id)
	}
	if parsed.String() != strings.ToLower(id) {
		return New(ErrCodeInvalidInput, "report id must be in canonical form: %q", id)
	}
	return nil
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// ErrorKind classifies why a payload was rejected.
type ErrorKind string

const (
	KindMalformedPayload ErrorKind = "malformed_payload"
	KindMissingField     ErrorKind = "missing_field"
	KindInvalidFormat    ErrorKind = "invalid_format"
)

// Wire field names.
const (
	FieldFirstName = "firstname"
	FieldLastName  = "lastname"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldCompany   = "company"
	FieldMessage   = "message"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s\p{Z}\x{FEFF}@]+@[^\s\p{Z}\x{FEFF}@]+\.[^\s\p{Z}\x{FEFF}@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)
)

var missingReasons = map[string]string{
	FieldFirstName: "First name is required",
	FieldLastName:  "Last name is required",
	FieldEmail:     "Email is required",
	FieldMessage:   "Message is required",
}

// ValidationError reports every failing field of one payload.
type ValidationError struct {
	Kind   ErrorKind
	Fields map[string]string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	names := e.FieldNames()
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(names, ","))
}

// FieldNames returns the failing field names in stable order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseCandidate decodes a JSON object body into a Candidate. Anything that is
// not a single JSON object with string (or null) values is malformed.
func ParseCandidate(r io.Reader, limit int64) (Candidate, *ValidationError) {
	var candidate Candidate
	if r == nil {
		return candidate, malformed("request body is empty")
	}
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return candidate, malformed("request body could not be read")
	}
	if limit > 0 && int64(len(raw)) > limit {
		return candidate, malformed("request body is too large")
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return candidate, malformed("request body is empty")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return candidate, malformed("request body must be a JSON object")
	}

	decoder := json.NewDecoder(strings.NewReader(trimmed))
	if err := decoder.Decode(&candidate); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return Candidate{}, &ValidationError{
				Kind:   KindMalformedPayload,
				Fields: map[string]string{typeErr.Field: "must be a string"},
				Reason: "request body has fields of the wrong type",
			}
		}
		return Candidate{}, malformed("request body is not valid JSON")
	}
	if decoder.More() {
		return Candidate{}, malformed("request body must contain a single JSON object")
	}
	return candidate, nil
}

// Validate applies the intake rules. It has no side effects.
func Validate(c Candidate, policy Policy) (ValidSubmission, *ValidationError) {
	firstName := trimmed(c.FirstName)
	lastName := trimmed(c.LastName)
	email := trimmed(c.Email)
	message := optional(c.Message)

	missing := map[string]string{}
	if firstName == "" {
		missing[FieldFirstName] = missingReasons[FieldFirstName]
	}
	if lastName == "" {
		missing[FieldLastName] = missingReasons[FieldLastName]
	}
	if email == "" {
		missing[FieldEmail] = missingReasons[FieldEmail]
	}
	if policy.RequireMessage && message == nil {
		missing[FieldMessage] = missingReasons[FieldMessage]
	}
	if len(missing) > 0 {
		return ValidSubmission{}, &ValidationError{
			Kind:   KindMissingField,
			Fields: missing,
			Reason: "missing required fields",
		}
	}

	invalid := map[string]string{}
	if !ValidEmail(email) {
		invalid[FieldEmail] = "Please provide a valid email address"
	}
	phone := optional(c.Phone)
	if phone != nil && !phonePattern.MatchString(*phone) {
		invalid[FieldPhone] = "Phone must contain 10 to 15 digits"
	}
	if len(invalid) > 0 {
		reason := "invalid phone format"
		if _, ok := invalid[FieldEmail]; ok {
			reason = "invalid email format"
		}
		return ValidSubmission{}, &ValidationError{
			Kind:   KindInvalidFormat,
			Fields: invalid,
			Reason: reason,
		}
	}

	return ValidSubmission{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     phone,
		Company:   optional(c.Company),
		Message:   message,
	}, nil
}

// ValidEmail reports whether value has the local@domain.tld shape.
func ValidEmail(value string) bool {
	return emailPattern.MatchString(value)
}

func malformed(reason string) *ValidationError {
	return &ValidationError{Kind: KindMalformedPayload, Reason: reason}
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func optional(value *string) *string {
	v := trimmed(value)
	if v == "" {
		return nil
	}
	return &v
}

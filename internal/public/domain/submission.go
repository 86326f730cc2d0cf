package domain

import "time"

// Submission is one accepted contact-form message. It is created once by the
// store and never mutated afterwards.
type Submission struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	Company   *string
	Message   *string
	SourceIP  string
	UserAgent string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Candidate is the typed shape of an inbound request body before any business
// rule has been applied. Nil means the key was absent or null.
type Candidate struct {
	FirstName *string `json:"firstname"`
	LastName  *string `json:"lastname"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
	Message   *string `json:"message"`
}

// ValidSubmission holds fields that passed validation, trimmed.
type ValidSubmission struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	Company   *string
	Message   *string
}

// Policy switches the optional rules of the intake form.
type Policy struct {
	RequireMessage bool
}

// Origin is transport-level metadata attached to a submission.
type Origin struct {
	SourceIP  string
	UserAgent string
}

// NewSubmission merges validated fields with request metadata. Both timestamps
// are set to now in UTC.
func NewSubmission(valid ValidSubmission, origin Origin, now time.Time) *Submission {
	now = now.UTC()
	return &Submission{
		FirstName: valid.FirstName,
		LastName:  valid.LastName,
		Email:     valid.Email,
		Phone:     valid.Phone,
		Company:   valid.Company,
		Message:   valid.Message,
		SourceIP:  origin.SourceIP,
		UserAgent: origin.UserAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FullName joins first and last name for greetings.
func (s Submission) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

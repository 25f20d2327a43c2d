package domain

import "time"

// SubjectType distinguishes authenticated principals.
type SubjectType string

const (
	SubjectTypeRequester SubjectType = "REQUESTER"
	SubjectTypeOperator  SubjectType = "OPERATOR"
)

// Operator is a human who claims and completes VIN report tickets.
type Operator struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package demande

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no demande exists for an identifier.
var ErrNotFound = errors.New("demande non trouvée")

// ErrAlreadyCancelled rejects a second cancellation of the same demande.
var ErrAlreadyCancelled = errors.New("la demande est déjà annulée")

// ValidationError names the field that failed creation validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("Le champ '%s' est obligatoire.", e.Field)
}

// MissingField builds the validation error for an absent required field.
func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// InvalidTransitionError reports a status transition outside the lifecycle
// table.
type InvalidTransitionError struct {
	From Status
	Op   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %s interdite depuis le statut %q", e.Op, e.From)
}

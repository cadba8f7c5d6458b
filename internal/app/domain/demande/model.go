// Package demande defines the action-request entity tracked through the
// review workflow.
package demande

import "time"

// Status is the lifecycle state of a demande. The stored values are the
// historical French enum of the demandes table.
type Status string

const (
	StatusPending   Status = "en attente"
	StatusValidated Status = "validee"
	StatusCancelled Status = "annulee"
)

// Valid reports whether s is part of the status vocabulary.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusCancelled:
		return true
	}
	return false
}

// DefaultUserID is stamped on submissions arriving without a user identifier.
const DefaultUserID = 1

// DateFormat is the wire form of dateDemande and dateAction.
const DateFormat = "2006-01-02"

// Demande is a submitted action request. Dates are carried as YYYY-MM-DD
// strings; Thematiques and PublicsCibles are ordered and round-trip through
// storage unchanged.
type Demande struct {
	ID               int64    `json:"id"`
	UserID           int64    `json:"userId"`
	DateDemande      string   `json:"dateDemande"`
	Intitule         string   `json:"intitule"`
	Responsable      string   `json:"responsable"`
	Email            string   `json:"email"`
	Programme        string   `json:"programme"`
	TypeAction       string   `json:"typeAction"`
	Thematiques      []string `json:"thematiques"`
	Objectifs        string   `json:"objectifs"`
	Description      string   `json:"description"`
	PublicsCibles    []string `json:"publicsCibles"`
	DateAction       string   `json:"dateAction"`
	Horaire          string   `json:"horaire"`
	Lieu             string   `json:"lieu"`
	BesoinsHumains   int      `json:"besoinsHumains"`
	Materiel         string   `json:"materiel"`
	Partenaires      string   `json:"partenaires"`
	Statut           Status   `json:"statut"`
	CommentaireAdmin string   `json:"commentaire_admin,omitempty"`
}

// ParseDate validates a YYYY-MM-DD date string.
func ParseDate(value string) (string, error) {
	t, err := time.Parse(DateFormat, value)
	if err != nil {
		return "", err
	}
	return t.Format(DateFormat), nil
}

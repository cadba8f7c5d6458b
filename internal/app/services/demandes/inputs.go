package demandes

import (
	"strconv"
	"strings"

	"github.com/agglo-acv/demande-service/internal/app/domain/demande"
	"github.com/agglo-acv/demande-service/internal/app/storage"
)

// NumberField accepts a JSON number or a numeric string. Submissions coming
// from the form historically send besoinsHumains as a string.
type NumberField struct {
	raw string
	set bool
}

func (n *NumberField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	n.raw = strings.TrimSpace(s)
	n.set = true
	return nil
}

// Int returns the parsed value. An empty submitted string coerces to zero;
// a missing or non-numeric value is reported as not ok.
func (n NumberField) Int() (int, bool) {
	if !n.set {
		return 0, false
	}
	if n.raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(n.raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CreateInput is the submission payload of POST /api/demandes.
type CreateInput struct {
	UserID         *int64      `json:"userId"`
	DateDemande    string      `json:"dateDemande"`
	Intitule       string      `json:"intitule"`
	Responsable    string      `json:"responsable"`
	Email          string      `json:"email"`
	Programme      string      `json:"programme"`
	TypeAction     string      `json:"typeAction"`
	Thematiques    []string    `json:"thematiques"`
	Objectifs      string      `json:"objectifs"`
	Description    string      `json:"description"`
	PublicsCibles  []string    `json:"publicsCibles"`
	DateAction     string      `json:"dateAction"`
	Horaire        string      `json:"horaire"`
	Lieu           string      `json:"lieu"`
	BesoinsHumains NumberField `json:"besoinsHumains"`
	Materiel       string      `json:"materiel"`
	Partenaires    string      `json:"partenaires"`
}

// validate checks the payload and builds the entity to persist. Each required
// field is reported in isolation, in submission-form order.
func (in *CreateInput) validate() (demande.Demande, error) {
	required := []struct {
		name  string
		empty bool
	}{
		{"dateDemande", in.DateDemande == ""},
		{"intitule", in.Intitule == ""},
		{"responsable", in.Responsable == ""},
		{"email", in.Email == ""},
		{"typeAction", in.TypeAction == ""},
		{"thematiques", len(in.Thematiques) == 0},
		{"objectifs", in.Objectifs == ""},
		{"description", in.Description == ""},
		{"publicsCibles", len(in.PublicsCibles) == 0},
		{"dateAction", in.DateAction == ""},
		{"materiel", in.Materiel == ""},
	}
	for _, f := range required {
		if f.empty {
			return demande.Demande{}, demande.MissingField(f.name)
		}
	}

	besoins, ok := in.BesoinsHumains.Int()
	if !ok {
		return demande.Demande{}, &demande.ValidationError{
			Field:  "besoinsHumains",
			Reason: "Le champ 'besoinsHumains' doit être un nombre.",
		}
	}

	dateDemande, err := demande.ParseDate(in.DateDemande)
	if err != nil {
		return demande.Demande{}, &demande.ValidationError{
			Field:  "dateDemande",
			Reason: "Le champ 'dateDemande' doit être une date YYYY-MM-DD.",
		}
	}
	dateAction, err := demande.ParseDate(in.DateAction)
	if err != nil {
		return demande.Demande{}, &demande.ValidationError{
			Field:  "dateAction",
			Reason: "Le champ 'dateAction' doit être une date YYYY-MM-DD.",
		}
	}

	userID := int64(demande.DefaultUserID)
	if in.UserID != nil {
		userID = *in.UserID
	}

	return demande.Demande{
		UserID:         userID,
		DateDemande:    dateDemande,
		Intitule:       in.Intitule,
		Responsable:    in.Responsable,
		Email:          strings.TrimSpace(in.Email),
		Programme:      in.Programme,
		TypeAction:     in.TypeAction,
		Thematiques:    in.Thematiques,
		Objectifs:      in.Objectifs,
		Description:    in.Description,
		PublicsCibles:  in.PublicsCibles,
		DateAction:     dateAction,
		Horaire:        in.Horaire,
		Lieu:           in.Lieu,
		BesoinsHumains: besoins,
		Materiel:       in.Materiel,
		Partenaires:    in.Partenaires,
		Statut:         demande.StatusPending,
	}, nil
}

// UpdateInput is the payload of PUT /api/demandes/:id. It overwrites the
// descriptive fields only; no business re-validation happens on edit.
type UpdateInput struct {
	Intitule       string      `json:"intitule"`
	Programme      string      `json:"programme"`
	TypeAction     string      `json:"typeAction"`
	Thematiques    []string    `json:"thematiques"`
	Objectifs      string      `json:"objectifs"`
	Description    string      `json:"description"`
	PublicsCibles  []string    `json:"publicsCibles"`
	DateAction     string      `json:"dateAction"`
	Horaire        string      `json:"horaire"`
	Lieu           string      `json:"lieu"`
	BesoinsHumains NumberField `json:"besoinsHumains"`
	Materiel       string      `json:"materiel"`
	Partenaires    string      `json:"partenaires"`
}

func (in *UpdateInput) fields() storage.FieldsUpdate {
	besoins, _ := in.BesoinsHumains.Int()
	return storage.FieldsUpdate{
		Intitule:       in.Intitule,
		Programme:      in.Programme,
		TypeAction:     in.TypeAction,
		Thematiques:    in.Thematiques,
		Objectifs:      in.Objectifs,
		Description:    in.Description,
		PublicsCibles:  in.PublicsCibles,
		DateAction:     in.DateAction,
		Horaire:        in.Horaire,
		Lieu:           in.Lieu,
		BesoinsHumains: besoins,
		Materiel:       in.Materiel,
		Partenaires:    in.Partenaires,
	}
}

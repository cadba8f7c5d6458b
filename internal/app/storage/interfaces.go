package storage

import (
	"context"

	"github.com/agglo-acv/demande-service/internal/app/domain/demande"
)

// FieldsUpdate carries the editable descriptive fields of a demande. Statut,
// id and the submission metadata are never written through this path.
type FieldsUpdate struct {
	Intitule       string
	Programme      string
	TypeAction     string
	Thematiques    []string
	Objectifs      string
	Description    string
	PublicsCibles  []string
	DateAction     string
	Horaire        string
	Lieu           string
	BesoinsHumains int
	Materiel       string
	Partenaires    string
}

// DemandeStore persists demande records. List results are ordered newest
// submission date first.
type DemandeStore interface {
	CreateDemande(ctx context.Context, d demande.Demande) (demande.Demande, error)
	GetDemande(ctx context.Context, id int64) (demande.Demande, error)
	ListDemandes(ctx context.Context) ([]demande.Demande, error)
	ListPendingDemandes(ctx context.Context) ([]demande.Demande, error)
	ListDemandesByEmail(ctx context.Context, email string) ([]demande.Demande, error)
	UpdateDemandeFields(ctx context.Context, id int64, fields FieldsUpdate) error
	// SetDemandeStatus is the sole writer of statut. A nil comment leaves
	// commentaire_admin untouched.
	SetDemandeStatus(ctx context.Context, id int64, status demande.Status, comment *string) (demande.Demande, error)
}

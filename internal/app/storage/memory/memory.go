// Package memory provides an in-memory demande store. It is safe for
// concurrent use and is primarily intended for tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/agglo-acv/demande-service/internal/app/domain/demande"
	"github.com/agglo-acv/demande-service/internal/app/storage"
)

// Store is an in-memory implementation of storage.DemandeStore.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	demandes map[int64]demande.Demande
}

var _ storage.DemandeStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:   1,
		demandes: make(map[int64]demande.Demande),
	}
}

func (s *Store) CreateDemande(_ context.Context, d demande.Demande) (demande.Demande, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = s.nextID
	s.nextID++
	d.Thematiques = cloneStrings(d.Thematiques)
	d.PublicsCibles = cloneStrings(d.PublicsCibles)
	s.demandes[d.ID] = d
	return d, nil
}

func (s *Store) GetDemande(_ context.Context, id int64) (demande.Demande, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.demandes[id]
	if !ok {
		return demande.Demande{}, demande.ErrNotFound
	}
	return copyDemande(d), nil
}

func (s *Store) ListDemandes(_ context.Context) ([]demande.Demande, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(demande.Demande) bool { return true }), nil
}

func (s *Store) ListPendingDemandes(_ context.Context) ([]demande.Demande, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(d demande.Demande) bool { return d.Statut == demande.StatusPending }), nil
}

func (s *Store) ListDemandesByEmail(_ context.Context, email string) ([]demande.Demande, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.TrimSpace(email)
	return s.collect(func(d demande.Demande) bool { return d.Email == email }), nil
}

func (s *Store) UpdateDemandeFields(_ context.Context, id int64, fields storage.FieldsUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.demandes[id]
	if !ok {
		return demande.ErrNotFound
	}

	d.Intitule = fields.Intitule
	d.Programme = fields.Programme
	d.TypeAction = fields.TypeAction
	d.Thematiques = cloneStrings(fields.Thematiques)
	d.Objectifs = fields.Objectifs
	d.Description = fields.Description
	d.PublicsCibles = cloneStrings(fields.PublicsCibles)
	d.DateAction = fields.DateAction
	d.Horaire = fields.Horaire
	d.Lieu = fields.Lieu
	d.BesoinsHumains = fields.BesoinsHumains
	d.Materiel = fields.Materiel
	d.Partenaires = fields.Partenaires

	s.demandes[id] = d
	return nil
}

func (s *Store) SetDemandeStatus(_ context.Context, id int64, status demande.Status, comment *string) (demande.Demande, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.demandes[id]
	if !ok {
		return demande.Demande{}, demande.ErrNotFound
	}

	d.Statut = status
	if comment != nil {
		d.CommentaireAdmin = *comment
	}
	s.demandes[id] = d
	return copyDemande(d), nil
}

// collect returns matching demandes ordered newest submission first; ids break
// ties so the order is stable.
func (s *Store) collect(match func(demande.Demande) bool) []demande.Demande {
	out := make([]demande.Demande, 0, len(s.demandes))
	for _, d := range s.demandes {
		if match(d) {
			out = append(out, copyDemande(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateDemande != out[j].DateDemande {
			return out[i].DateDemande > out[j].DateDemande
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func copyDemande(d demande.Demande) demande.Demande {
	d.Thematiques = cloneStrings(d.Thematiques)
	d.PublicsCibles = cloneStrings(d.PublicsCibles)
	return d
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

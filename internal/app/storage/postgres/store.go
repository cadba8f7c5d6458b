// Package postgres implements the demande store backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agglo-acv/demande-service/internal/app/domain/demande"
	"github.com/agglo-acv/demande-service/internal/app/storage"
)

// Store implements storage.DemandeStore using the provided database handle.
type Store struct {
	db *sql.DB
}

var _ storage.DemandeStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const demandeColumns = `
	id, user_id, to_char(date_demande, 'YYYY-MM-DD'), intitule, responsable,
	email, programme, type_action, thematiques, objectifs, description,
	publics_cibles, to_char(date_action, 'YYYY-MM-DD'), horaire, lieu,
	besoins_humains, materiel, partenaires, statut, commentaire_admin`

func (s *Store) CreateDemande(ctx context.Context, d demande.Demande) (demande.Demande, error) {
	thematiques, err := json.Marshal(d.Thematiques)
	if err != nil {
		return demande.Demande{}, fmt.Errorf("encode thematiques: %w", err)
	}
	publics, err := json.Marshal(d.PublicsCibles)
	if err != nil {
		return demande.Demande{}, fmt.Errorf("encode publics_cibles: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO demandes (
			user_id, date_demande, intitule, responsable, email, programme,
			type_action, thematiques, objectifs, description, publics_cibles,
			date_action, horaire, lieu, besoins_humains, materiel, partenaires,
			statut
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::date,
			$13, $14, $15, $16, $17, $18)
		RETURNING id
	`, d.UserID, d.DateDemande, d.Intitule, d.Responsable, d.Email, d.Programme,
		d.TypeAction, thematiques, d.Objectifs, d.Description, publics,
		d.DateAction, d.Horaire, d.Lieu, d.BesoinsHumains, d.Materiel,
		d.Partenaires, string(d.Statut)).Scan(&d.ID)
	if err != nil {
		return demande.Demande{}, fmt.Errorf("insert demande: %w", err)
	}
	return d, nil
}

func (s *Store) GetDemande(ctx context.Context, id int64) (demande.Demande, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+demandeColumns+`
		FROM demandes
		WHERE id = $1
	`, id)
	return scanDemande(row)
}

func (s *Store) ListDemandes(ctx context.Context) ([]demande.Demande, error) {
	return s.list(ctx, `
		SELECT `+demandeColumns+`
		FROM demandes
		ORDER BY date_demande DESC, id DESC
	`)
}

func (s *Store) ListPendingDemandes(ctx context.Context) ([]demande.Demande, error) {
	return s.list(ctx, `
		SELECT `+demandeColumns+`
		FROM demandes
		WHERE statut = $1
		ORDER BY date_demande DESC, id DESC
	`, string(demande.StatusPending))
}

func (s *Store) ListDemandesByEmail(ctx context.Context, email string) ([]demande.Demande, error) {
	return s.list(ctx, `
		SELECT `+demandeColumns+`
		FROM demandes
		WHERE email = $1
		ORDER BY date_demande DESC, id DESC
	`, strings.TrimSpace(email))
}

func (s *Store) UpdateDemandeFields(ctx context.Context, id int64, fields storage.FieldsUpdate) error {
	thematiques, err := json.Marshal(fields.Thematiques)
	if err != nil {
		return fmt.Errorf("encode thematiques: %w", err)
	}
	publics, err := json.Marshal(fields.PublicsCibles)
	if err != nil {
		return fmt.Errorf("encode publics_cibles: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE demandes SET
			intitule = $2, programme = $3, type_action = $4, thematiques = $5,
			objectifs = $6, description = $7, publics_cibles = $8,
			date_action = $9::date, horaire = $10, lieu = $11,
			besoins_humains = $12, materiel = $13, partenaires = $14
		WHERE id = $1
	`, id, fields.Intitule, fields.Programme, fields.TypeAction, thematiques,
		fields.Objectifs, fields.Description, publics, fields.DateAction,
		fields.Horaire, fields.Lieu, fields.BesoinsHumains, fields.Materiel,
		fields.Partenaires)
	if err != nil {
		return fmt.Errorf("update demande: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return demande.ErrNotFound
	}
	return nil
}

func (s *Store) SetDemandeStatus(ctx context.Context, id int64, status demande.Status, comment *string) (demande.Demande, error) {
	var adminComment sql.NullString
	if comment != nil {
		adminComment = sql.NullString{String: *comment, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE demandes
		SET statut = $2, commentaire_admin = COALESCE($3, commentaire_admin)
		WHERE id = $1
	`, id, string(status), adminComment)
	if err != nil {
		return demande.Demande{}, fmt.Errorf("update statut: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return demande.Demande{}, demande.ErrNotFound
	}

	return s.GetDemande(ctx, id)
}

func (s *Store) list(ctx context.Context, query string, args ...interface{}) ([]demande.Demande, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Never nil: list endpoints serialize this directly and the SPA expects
	// an array even when the table is empty.
	result := []demande.Demande{}
	for rows.Next() {
		d, err := scanDemande(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDemande(row rowScanner) (demande.Demande, error) {
	var (
		d              demande.Demande
		thematiquesRaw []byte
		publicsRaw     []byte
		comment        sql.NullString
	)

	err := row.Scan(
		&d.ID, &d.UserID, &d.DateDemande, &d.Intitule, &d.Responsable,
		&d.Email, &d.Programme, &d.TypeAction, &thematiquesRaw, &d.Objectifs,
		&d.Description, &publicsRaw, &d.DateAction, &d.Horaire, &d.Lieu,
		&d.BesoinsHumains, &d.Materiel, &d.Partenaires, &d.Statut, &comment,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return demande.Demande{}, demande.ErrNotFound
		}
		return demande.Demande{}, err
	}

	if len(thematiquesRaw) > 0 {
		if err := json.Unmarshal(thematiquesRaw, &d.Thematiques); err != nil {
			return demande.Demande{}, fmt.Errorf("decode thematiques: %w", err)
		}
	}
	if len(publicsRaw) > 0 {
		if err := json.Unmarshal(publicsRaw, &d.PublicsCibles); err != nil {
			return demande.Demande{}, fmt.Errorf("decode publics_cibles: %w", err)
		}
	}
	if comment.Valid {
		d.CommentaireAdmin = comment.String
	}
	return d, nil
}

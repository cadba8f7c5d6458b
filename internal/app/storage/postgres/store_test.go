package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/agglo-acv/demande-service/internal/app/domain/demande"
	"github.com/agglo-acv/demande-service/internal/app/storage"
)

var demandeRows = []string{
	"id", "user_id", "date_demande", "intitule", "responsable",
	"email", "programme", "type_action", "thematiques", "objectifs",
	"description", "publics_cibles", "date_action", "horaire", "lieu",
	"besoins_humains", "materiel", "partenaires", "statut", "commentaire_admin",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func sampleRow(id int64, statut string) []driver.Value {
	return []driver.Value{
		id, int64(1), "2025-03-01", "Atelier compost", "Jeanne Martin",
		"jeanne@exemple.fr", "", "atelier", `["environnement"]`, "Sensibiliser",
		"Atelier de quartier", `["habitants"]`, "2025-04-12", "", "",
		3, "tables", "", statut, nil,
	}
}

func TestCreateDemandeReturnsID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO demandes").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	created, err := store.CreateDemande(context.Background(), demande.Demande{
		UserID:        1,
		DateDemande:   "2025-03-01",
		Intitule:      "Atelier compost",
		Responsable:   "Jeanne Martin",
		Email:         "jeanne@exemple.fr",
		TypeAction:    "atelier",
		Thematiques:   []string{"environnement"},
		Objectifs:     "Sensibiliser",
		Description:   "Atelier de quartier",
		PublicsCibles: []string{"habitants"},
		DateAction:    "2025-04-12",
		Materiel:      "tables",
		Statut:        demande.StatusPending,
	})
	if err != nil {
		t.Fatalf("CreateDemande: %v", err)
	}
	if created.ID != 7 {
		t.Fatalf("id = %d, want 7", created.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetDemandeDecodesRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(demandeRows).AddRow(sampleRow(7, "en attente")...))

	got, err := store.GetDemande(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetDemande: %v", err)
	}
	if got.ID != 7 || got.Statut != demande.StatusPending {
		t.Fatalf("got %+v", got)
	}
	if len(got.Thematiques) != 1 || got.Thematiques[0] != "environnement" {
		t.Fatalf("thematiques = %v", got.Thematiques)
	}
	if got.CommentaireAdmin != "" {
		t.Fatalf("commentaire_admin = %q, want empty for NULL", got.CommentaireAdmin)
	}
}

func TestGetDemandeNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(demandeRows))

	if _, err := store.GetDemande(context.Background(), 99); !errors.Is(err, demande.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateDemandeFieldsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE demandes SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateDemandeFields(context.Background(), 99, storage.FieldsUpdate{
		Intitule:   "x",
		DateAction: "2025-05-01",
	})
	if !errors.Is(err, demande.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSetDemandeStatusKeepsCommentOnNil(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE demandes").
		WithArgs(int64(7), "annulee", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(demandeRows).AddRow(sampleRow(7, "annulee")...))

	updated, err := store.SetDemandeStatus(context.Background(), 7, demande.StatusCancelled, nil)
	if err != nil {
		t.Fatalf("SetDemandeStatus: %v", err)
	}
	if updated.Statut != demande.StatusCancelled {
		t.Fatalf("statut = %q", updated.Statut)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSetDemandeStatusWritesComment(t *testing.T) {
	store, mock := newMockStore(t)

	comment := "Budget insuffisant"
	mock.ExpectExec("UPDATE demandes").
		WithArgs(int64(7), "annulee", comment).
		WillReturnResult(sqlmock.NewResult(0, 1))

	row := sampleRow(7, "annulee")
	row[len(row)-1] = comment
	mock.ExpectQuery("SELECT").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(demandeRows).AddRow(row...))

	updated, err := store.SetDemandeStatus(context.Background(), 7, demande.StatusCancelled, &comment)
	if err != nil {
		t.Fatalf("SetDemandeStatus: %v", err)
	}
	if updated.CommentaireAdmin != comment {
		t.Fatalf("commentaire_admin = %q, want %q", updated.CommentaireAdmin, comment)
	}
}

func TestListEmptyTableEncodesAsArray(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows(demandeRows))

	list, err := store.ListDemandes(context.Background())
	if err != nil {
		t.Fatalf("ListDemandes: %v", err)
	}
	if list == nil {
		t.Fatal("empty result must be a non-nil slice")
	}
	encoded, err := json.Marshal(list)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != "[]" {
		t.Fatalf("encoded body %s, want []", encoded)
	}
}

func TestScanRejectsCorruptSequences(t *testing.T) {
	store, mock := newMockStore(t)

	row := sampleRow(7, "en attente")
	row[8] = "pas-du-json" // thematiques column
	mock.ExpectQuery("SELECT").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(demandeRows).AddRow(row...))

	_, err := store.GetDemande(context.Background(), 7)
	if err == nil || !strings.Contains(err.Error(), "decode thematiques") {
		t.Fatalf("got %v, want a decode thematiques error", err)
	}
}

func TestListPendingFiltersOnStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("WHERE statut").
		WithArgs("en attente").
		WillReturnRows(sqlmock.NewRows(demandeRows).
			AddRow(sampleRow(2, "en attente")...).
			AddRow(sampleRow(1, "en attente")...))

	list, err := store.ListPendingDemandes(context.Background())
	if err != nil {
		t.Fatalf("ListPendingDemandes: %v", err)
	}
	if len(list) != 2 || list[0].ID != 2 {
		t.Fatalf("list = %+v", list)
	}
}

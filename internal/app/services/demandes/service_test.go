package demandes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/agglo-acv/demande-service/internal/app/domain/demande"
	"github.com/agglo-acv/demande-service/internal/app/storage/memory"
)

type sentMail struct {
	to      string
	subject string
	html    string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeNotifier) Send(_ context.Context, to, subject, html string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("relais indisponible")
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: html})
	return []byte(`{"accepted":true}`), nil
}

func (f *fakeNotifier) mails() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMail, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestService(notifier Notifier) *Service {
	return New(memory.New(), notifier, Config{
		AdminEmail: "validateur@exemple.fr",
		SuiviURL:   "http://localhost:5173/suivi",
	}, nil)
}

func validInput() *CreateInput {
	return &CreateInput{
		DateDemande:    "2025-03-01",
		Intitule:       "Atelier compost",
		Responsable:    "Jeanne Martin",
		Email:          "jeanne@exemple.fr",
		TypeAction:     "atelier",
		Thematiques:    []string{"environnement", "dechets"},
		Objectifs:      "Sensibiliser au compostage",
		Description:    "Atelier pratique sur le compostage de quartier",
		PublicsCibles:  []string{"habitants"},
		DateAction:     "2025-04-12",
		Materiel:       "tables et bacs",
		BesoinsHumains: NumberField{raw: "3", set: true},
	}
}

func TestCreateAssignsDefaults(t *testing.T) {
	svc := newTestService(nil)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	if created.Statut != demande.StatusPending {
		t.Fatalf("statut = %q, want %q", created.Statut, demande.StatusPending)
	}
	if created.UserID != demande.DefaultUserID {
		t.Fatalf("userId = %d, want %d", created.UserID, demande.DefaultUserID)
	}
	if created.BesoinsHumains != 3 {
		t.Fatalf("besoinsHumains = %d, want 3", created.BesoinsHumains)
	}
}

func TestCreateRequiredFields(t *testing.T) {
	cases := []struct {
		field string
		strip func(*CreateInput)
	}{
		{"dateDemande", func(in *CreateInput) { in.DateDemande = "" }},
		{"intitule", func(in *CreateInput) { in.Intitule = "" }},
		{"responsable", func(in *CreateInput) { in.Responsable = "" }},
		{"email", func(in *CreateInput) { in.Email = "" }},
		{"typeAction", func(in *CreateInput) { in.TypeAction = "" }},
		{"thematiques", func(in *CreateInput) { in.Thematiques = nil }},
		{"objectifs", func(in *CreateInput) { in.Objectifs = "" }},
		{"description", func(in *CreateInput) { in.Description = "" }},
		{"publicsCibles", func(in *CreateInput) { in.PublicsCibles = nil }},
		{"dateAction", func(in *CreateInput) { in.DateAction = "" }},
		{"materiel", func(in *CreateInput) { in.Materiel = "" }},
	}

	svc := newTestService(nil)
	for _, tc := range cases {
		in := validInput()
		tc.strip(in)

		_, err := svc.Create(context.Background(), in)
		var verr *demande.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected validation error, got %v", tc.field, err)
		}
		want := fmt.Sprintf("Le champ '%s' est obligatoire.", tc.field)
		if verr.Error() != want {
			t.Fatalf("%s: message = %q, want %q", tc.field, verr.Error(), want)
		}
	}
}

func TestCreateBesoinsHumains(t *testing.T) {
	svc := newTestService(nil)

	in := validInput()
	in.BesoinsHumains = NumberField{raw: "abc", set: true}
	_, err := svc.Create(context.Background(), in)
	if err == nil || err.Error() != "Le champ 'besoinsHumains' doit être un nombre." {
		t.Fatalf("non-numeric value: got %v", err)
	}

	in = validInput()
	in.BesoinsHumains = NumberField{}
	if _, err := svc.Create(context.Background(), in); err == nil {
		t.Fatal("missing besoinsHumains should be rejected")
	}

	in = validInput()
	in.BesoinsHumains = NumberField{raw: "", set: true}
	created, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("empty string should coerce to zero, got %v", err)
	}
	if created.BesoinsHumains != 0 {
		t.Fatalf("besoinsHumains = %d, want 0", created.BesoinsHumains)
	}
}

func TestValidateStampsCommentAndNotifies(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(notifier)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, emailErr, err := svc.Validate(context.Background(), created.ID, "Salle B réservée")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if emailErr != "" {
		t.Fatalf("unexpected emailError %q", emailErr)
	}
	if updated.Statut != demande.StatusValidated {
		t.Fatalf("statut = %q, want %q", updated.Statut, demande.StatusValidated)
	}
	if updated.CommentaireAdmin != "Salle B réservée" {
		t.Fatalf("commentaire_admin = %q", updated.CommentaireAdmin)
	}

	mails := notifier.mails()
	if len(mails) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(mails))
	}
	if mails[0].to != created.Email {
		t.Fatalf("first mail to %q, want requester %q", mails[0].to, created.Email)
	}
	if mails[1].to != "validateur@exemple.fr" {
		t.Fatalf("second mail to %q, want admin", mails[1].to)
	}
	if !strings.Contains(mails[0].html, "Salle B réservée") {
		t.Fatal("requester mail should carry the admin comment")
	}
}

func TestValidateNotifierFailureIsAdvisory(t *testing.T) {
	notifier := &fakeNotifier{fail: true}
	svc := newTestService(notifier)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, emailErr, err := svc.Validate(context.Background(), created.ID, "")
	if err != nil {
		t.Fatalf("Validate should succeed despite mail failure: %v", err)
	}
	if emailErr == "" {
		t.Fatal("expected an advisory emailError")
	}
	if updated.Statut != demande.StatusValidated {
		t.Fatalf("statut = %q, want %q", updated.Statut, demande.StatusValidated)
	}
}

func TestValidateOnlyFromPending(t *testing.T) {
	svc := newTestService(nil)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := svc.Validate(context.Background(), created.ID, ""); err != nil {
		t.Fatalf("first Validate: %v", err)
	}

	_, _, err = svc.Validate(context.Background(), created.ID, "")
	var terr *demande.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected transition error, got %v", err)
	}
}

func TestRejectCancelsWithComment(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(notifier)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Reject(context.Background(), created.ID, "Budget insuffisant")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if updated.Statut != demande.StatusCancelled {
		t.Fatalf("statut = %q, want %q", updated.Statut, demande.StatusCancelled)
	}
	if updated.CommentaireAdmin != "Budget insuffisant" {
		t.Fatalf("commentaire_admin = %q", updated.CommentaireAdmin)
	}

	svc.Wait()
	mails := notifier.mails()
	if len(mails) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(mails))
	}
	if !strings.Contains(mails[0].html, "Budget insuffisant") {
		t.Fatal("requester mail should carry the rejection comment")
	}
}

func TestCancelLifecycle(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(notifier)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := svc.Validate(context.Background(), created.ID, ""); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	updated, err := svc.Cancel(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Cancel after validation: %v", err)
	}
	if updated.Statut != demande.StatusCancelled {
		t.Fatalf("statut = %q, want %q", updated.Statut, demande.StatusCancelled)
	}

	if _, err := svc.Cancel(context.Background(), created.ID); !errors.Is(err, demande.ErrAlreadyCancelled) {
		t.Fatalf("second Cancel: got %v, want ErrAlreadyCancelled", err)
	}

	svc.Wait()
	// Two validation mails plus two cancellation mails.
	if got := len(notifier.mails()); got != 4 {
		t.Fatalf("expected 4 notifications, got %d", got)
	}
}

func TestCancelUnknownDemande(t *testing.T) {
	svc := newTestService(nil)
	if _, err := svc.Cancel(context.Background(), 42); !errors.Is(err, demande.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateKeepsStatus(t *testing.T) {
	svc := newTestService(nil)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = svc.Update(context.Background(), created.ID, &UpdateInput{
		Intitule:       "Atelier compost v2",
		TypeAction:     "atelier",
		Thematiques:    []string{"environnement"},
		Objectifs:      "Sensibiliser",
		Description:    "Version remaniée",
		PublicsCibles:  []string{"scolaires"},
		DateAction:     "2025-05-02",
		Materiel:       "bacs",
		BesoinsHumains: NumberField{raw: "5", set: true},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Intitule != "Atelier compost v2" {
		t.Fatalf("intitule = %q", got.Intitule)
	}
	if got.BesoinsHumains != 5 {
		t.Fatalf("besoinsHumains = %d, want 5", got.BesoinsHumains)
	}
	if got.Statut != demande.StatusPending {
		t.Fatalf("statut = %q, edits must not touch it", got.Statut)
	}
}

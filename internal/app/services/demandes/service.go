// Package demandes implements the demande lifecycle: submission, edition and
// the status transitions with their notifications.
package demandes

import (
	"context"
	"sync"
	"time"

	"github.com/agglo-acv/demande-service/internal/app/domain/demande"
	"github.com/agglo-acv/demande-service/internal/app/metrics"
	"github.com/agglo-acv/demande-service/internal/app/storage"
	"github.com/agglo-acv/demande-service/pkg/logger"
)

// Notifier delivers one HTML notification. Failures are advisory on
// transition paths and never abort the status change.
type Notifier interface {
	Send(ctx context.Context, to, subject, html string) ([]byte, error)
}

// Config carries the notification settings of the service.
type Config struct {
	// AdminEmail receives the administrator copy of every transition.
	AdminEmail string
	// SuiviURL is the SPA page linked from validation mails.
	SuiviURL string
	// NotifyTimeout bounds each background dispatch.
	NotifyTimeout time.Duration
}

// Service is the lifecycle controller over the demande store.
type Service struct {
	store    storage.DemandeStore
	notifier Notifier
	cfg      Config
	log      *logger.Logger

	wg sync.WaitGroup
}

// New constructs the service. A nil notifier disables notifications.
func New(store storage.DemandeStore, notifier Notifier, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("demandes")
	}
	if cfg.SuiviURL == "" {
		cfg.SuiviURL = "http://localhost:5173/suivi"
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 30 * time.Second
	}
	return &Service{store: store, notifier: notifier, cfg: cfg, log: log}
}

// Create validates the submission and persists it with statut "en attente".
func (s *Service) Create(ctx context.Context, in *CreateInput) (demande.Demande, error) {
	entity, err := in.validate()
	if err != nil {
		return demande.Demande{}, err
	}

	created, err := s.store.CreateDemande(ctx, entity)
	if err != nil {
		return demande.Demande{}, err
	}
	s.log.WithField("demande_id", created.ID).
		WithField("email", created.Email).
		Info("demande enregistrée")
	return created, nil
}

// Get returns one demande.
func (s *Service) Get(ctx context.Context, id int64) (demande.Demande, error) {
	return s.store.GetDemande(ctx, id)
}

// List returns every demande, newest submission first.
func (s *Service) List(ctx context.Context) ([]demande.Demande, error) {
	return s.store.ListDemandes(ctx)
}

// ListPending returns demandes still awaiting review.
func (s *Service) ListPending(ctx context.Context) ([]demande.Demande, error) {
	return s.store.ListPendingDemandes(ctx)
}

// ListByEmail returns the demandes submitted under an email address.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]demande.Demande, error) {
	return s.store.ListDemandesByEmail(ctx, email)
}

// Update overwrites the descriptive fields of a demande. Statut is never
// touched on this path and edits are not re-validated.
func (s *Service) Update(ctx context.Context, id int64, in *UpdateInput) error {
	if err := s.store.UpdateDemandeFields(ctx, id, in.fields()); err != nil {
		return err
	}
	s.log.WithField("demande_id", id).Info("demande modifiée")
	return nil
}

// Validate moves a pending demande to "validee" and stamps the administrator
// comment. Both notifications are sent before returning so a delivery failure
// can be surfaced as an advisory string; it never fails the transition.
func (s *Service) Validate(ctx context.Context, id int64, comment string) (demande.Demande, string, error) {
	current, err := s.store.GetDemande(ctx, id)
	if err != nil {
		return demande.Demande{}, "", err
	}
	if current.Statut != demande.StatusPending {
		return demande.Demande{}, "", &demande.InvalidTransitionError{From: current.Statut, Op: "validation"}
	}

	updated, err := s.store.SetDemandeStatus(ctx, id, demande.StatusValidated, &comment)
	if err != nil {
		return demande.Demande{}, "", err
	}
	metrics.RecordTransition("validate")
	s.log.WithField("demande_id", id).Info("demande validée")

	emailErr := s.dispatch(ctx,
		validationUserMessage(updated, comment, s.cfg.SuiviURL),
		validationAdminMessage(updated, comment, s.cfg.AdminEmail),
	)
	return updated, emailErr, nil
}

// Reject moves a pending demande to "annulee" with the administrator comment.
// Notifications go out in the background.
func (s *Service) Reject(ctx context.Context, id int64, comment string) (demande.Demande, error) {
	current, err := s.store.GetDemande(ctx, id)
	if err != nil {
		return demande.Demande{}, err
	}
	if current.Statut != demande.StatusPending {
		return demande.Demande{}, &demande.InvalidTransitionError{From: current.Statut, Op: "refus"}
	}

	updated, err := s.store.SetDemandeStatus(ctx, id, demande.StatusCancelled, &comment)
	if err != nil {
		return demande.Demande{}, err
	}
	metrics.RecordTransition("reject")
	s.log.WithField("demande_id", id).Info("demande refusée")

	s.dispatchAsync(
		rejectionUserMessage(updated),
		rejectionAdminMessage(updated, s.cfg.AdminEmail),
	)
	return updated, nil
}

// Cancel moves a pending or validated demande to "annulee". Cancelling twice
// fails with ErrAlreadyCancelled. Notifications go out in the background.
func (s *Service) Cancel(ctx context.Context, id int64) (demande.Demande, error) {
	current, err := s.store.GetDemande(ctx, id)
	if err != nil {
		return demande.Demande{}, err
	}
	if current.Statut == demande.StatusCancelled {
		return demande.Demande{}, demande.ErrAlreadyCancelled
	}

	updated, err := s.store.SetDemandeStatus(ctx, id, demande.StatusCancelled, nil)
	if err != nil {
		return demande.Demande{}, err
	}
	metrics.RecordTransition("cancel")
	s.log.WithField("demande_id", id).Info("demande annulée")

	s.dispatchAsync(
		cancellationUserMessage(updated),
		cancellationAdminMessage(updated, s.cfg.AdminEmail),
	)
	return updated, nil
}

// Wait blocks until in-flight background notifications settle. Called on
// shutdown and by tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// dispatch sends messages sequentially and returns the first failure as an
// advisory string, empty when everything went out.
func (s *Service) dispatch(ctx context.Context, msgs ...message) string {
	if s.notifier == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
	defer cancel()

	for _, m := range msgs {
		if _, err := s.notifier.Send(ctx, m.To, m.Subject, m.HTML); err != nil {
			s.log.WithError(err).WithField("to", m.To).Warn("échec de l'envoi du mail")
			metrics.RecordNotification(false)
			return err.Error()
		}
		metrics.RecordNotification(true)
	}
	return ""
}

// dispatchAsync sends messages from a background goroutine detached from the
// request. Failures land in the log, never in the caller.
func (s *Service) dispatchAsync(msgs ...message) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
		defer cancel()

		for _, m := range msgs {
			if _, err := s.notifier.Send(ctx, m.To, m.Subject, m.HTML); err != nil {
				s.log.WithError(err).WithField("to", m.To).Warn("échec de l'envoi du mail (non bloquant)")
				metrics.RecordNotification(false)
				continue
			}
			metrics.RecordNotification(true)
		}
	}()
}

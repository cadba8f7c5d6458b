package app

import (
	"context"

	"github.com/agglo-acv/demande-service/internal/app/services/demandes"
	"github.com/agglo-acv/demande-service/internal/app/storage"
	"github.com/agglo-acv/demande-service/internal/app/storage/memory"
	"github.com/agglo-acv/demande-service/internal/app/system"
	"github.com/agglo-acv/demande-service/pkg/logger"
)

// Stores encapsulates persistence dependencies. A nil store defaults to the
// in-memory implementation.
type Stores struct {
	Demandes storage.DemandeStore
}

// Application ties the domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Demandes *demandes.Service
}

// New builds a fully initialised application with the provided stores. The
// notifier may be nil when no mail relay is configured.
func New(stores Stores, notifier demandes.Notifier, cfg demandes.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if stores.Demandes == nil {
		stores.Demandes = memory.New()
	}

	manager := system.NewManager()

	demandeService := demandes.New(stores.Demandes, notifier, cfg, log.Named("demandes"))
	if err := manager.Register(notificationDrain{svc: demandeService}); err != nil {
		return nil, err
	}

	return &Application{
		manager:  manager,
		log:      log,
		Demandes: demandeService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// notificationDrain blocks shutdown until background notification mails
// have settled.
type notificationDrain struct {
	svc *demandes.Service
}

func (notificationDrain) Name() string { return "demande-notifications" }

func (notificationDrain) Start(context.Context) error { return nil }

func (d notificationDrain) Stop(context.Context) error {
	d.svc.Wait()
	return nil
}

package app

import (
	"context"
	"testing"

	"github.com/agglo-acv/demande-service/internal/app/services/demandes"
)

func TestNewDefaultsToMemoryStore(t *testing.T) {
	application, err := New(Stores{}, nil, demandes.Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := application.Demandes.List(ctx); err != nil {
		t.Fatalf("List on default store: %v", err)
	}
	if err := application.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

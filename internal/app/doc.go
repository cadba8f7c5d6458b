// Package app composes the demande service: it wires the storage layer, the
// lifecycle service and the notifier into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/
//	│   └── demande/        # Demande model, statuses and domain errors
//	├── storage/            # Store interface and implementations
//	│   ├── interfaces.go
//	│   ├── memory/         # In-memory store for tests and local runs
//	│   └── postgres/       # PostgreSQL store for production
//	├── services/
//	│   └── demandes/       # Lifecycle rules, validation and notifications
//	├── httpapi/            # REST handlers and the websocket mail relay
//	├── system/             # Lifecycle manager
//	└── metrics/            # Prometheus collectors
//
// Business rules live in internal/app/services; handlers in httpapi only
// translate HTTP to service calls and map domain errors to statuses.
package app

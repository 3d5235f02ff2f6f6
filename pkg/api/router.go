package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davisshaver/audiencesync/pkg/contacts"
	"github.com/davisshaver/audiencesync/pkg/lists"
	"github.com/davisshaver/audiencesync/pkg/provider"
)

// Service is the engine surface the handlers need. *contacts.Engine
// satisfies it.
type Service interface {
	Subscribe(ctx context.Context, contact *provider.Contact, listIDs []string, async bool, reason string) (*contacts.SubscribeResult, error)
	Delete(ctx context.Context, email, reason string) error
	UpdateLists(ctx context.Context, email string, desired []string, reason string) (contacts.ListUpdateStatus, error)
}

// Catalog lists the configured subscription lists. Both lists.Config and
// lists.Store satisfy it.
type Catalog interface {
	All(ctx context.Context) ([]lists.List, error)
}

// Handler holds the HTTP handlers' dependencies.
type Handler struct {
	svc     Service
	catalog Catalog
	log     *slog.Logger
}

// New builds the API router.
func New(svc Service, catalog Catalog, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Handler{svc: svc, catalog: catalog, log: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recover(log))

	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/lists", h.listLists)
		r.Post("/contacts/subscribe", h.subscribe)
		r.Put("/contacts/{email}/lists", h.updateLists)
		r.Delete("/contacts/{email}", h.deleteContact)
	})

	return r
}

// Package httpapi exposes the demande REST API consumed by the SPA.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/agglo-acv/demande-service/internal/app/domain/demande"
	"github.com/agglo-acv/demande-service/internal/app/metrics"
	"github.com/agglo-acv/demande-service/internal/app/services/demandes"
	"github.com/agglo-acv/demande-service/pkg/logger"
)

// handler bundles the HTTP endpoints of the demande service.
type handler struct {
	demandes *demandes.Service
	mailer   Mailer
	log      *logger.Logger
}

// NewHandler returns the API router. The mailer may be nil, in which case the
// websocket relay endpoint is not registered.
func NewHandler(svc *demandes.Service, mailer Mailer, log *logger.Logger) *mux.Router {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{demandes: svc, mailer: mailer, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/demandes", h.list).Methods(http.MethodGet)
	api.HandleFunc("/demandes", h.create).Methods(http.MethodPost)
	// Literal segments before the {id} routes so "pending" never parses as an id.
	api.HandleFunc("/demandes/pending", h.listPending).Methods(http.MethodGet)
	api.HandleFunc("/demandes/email/{email}", h.listByEmail).Methods(http.MethodGet)
	api.HandleFunc("/demandes/{id:[0-9]+}", h.get).Methods(http.MethodGet)
	api.HandleFunc("/demandes/{id:[0-9]+}", h.update).Methods(http.MethodPut)
	api.HandleFunc("/demandes/{id:[0-9]+}/annuler", h.cancel).Methods(http.MethodPut)
	api.HandleFunc("/demandes/{id:[0-9]+}/validate", h.validate).Methods(http.MethodPut)
	api.HandleFunc("/demandes/{id:[0-9]+}/reject", h.reject).Methods(http.MethodPut)

	if mailer != nil {
		r.HandleFunc("/ws", h.serveWS)
	}
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.demandes.List(r.Context())
	if err != nil {
		h.writeFailure(w, err, "Erreur lors de la récupération des demandes")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) listPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.demandes.ListPending(r.Context())
	if err != nil {
		h.writeFailure(w, err, "Erreur lors de la récupération des demandes")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) listByEmail(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	list, err := h.demandes.ListByEmail(r.Context(), email)
	if err != nil {
		h.writeFailure(w, err, "Erreur lors de la récupération des demandes")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.demandes.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err, "Erreur lors de la récupération de la demande")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	var payload demandes.CreateInput
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Requête invalide.", err.Error())
		return
	}

	created, err := h.demandes.Create(r.Context(), &payload)
	if err != nil {
		h.writeFailure(w, err, "Erreur lors de l'enregistrement de la demande")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Demande enregistrée",
		"id":      created.ID,
	})
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload demandes.UpdateInput
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Requête invalide.", err.Error())
		return
	}

	if err := h.demandes.Update(r.Context(), id, &payload); err != nil {
		h.writeFailure(w, err, "Erreur lors de la modification de la demande")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Demande modifiée avec succès",
	})
}

func (h *handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.demandes.Cancel(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err, "Erreur lors de l'annulation de la demande")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Demande annulée avec succès",
		"demande": map[string]interface{}{
			"id":       d.ID,
			"statut":   d.Statut,
			"intitule": d.Intitule,
		},
	})
}

func (h *handler) validate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	comment, err := decodeComment(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Requête invalide.", err.Error())
		return
	}

	_, emailErr, err := h.demandes.Validate(r.Context(), id, comment)
	if err != nil {
		h.writeFailure(w, err, "Erreur lors de la validation de la demande")
		return
	}
	resp := map[string]interface{}{"message": "Demande validée avec succès"}
	if emailErr != "" {
		resp["message"] = "Demande validée avec succès mais erreur lors de l'envoi des emails"
		resp["emailError"] = emailErr
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	comment, err := decodeComment(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Requête invalide.", err.Error())
		return
	}

	if _, err := h.demandes.Reject(r.Context(), id, comment); err != nil {
		h.writeFailure(w, err, "Erreur lors du refus de la demande")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Demande refusée avec succès",
	})
}

// writeFailure maps domain errors to client statuses; anything else is an
// internal failure reported with the French context and the raw cause.
func (h *handler) writeFailure(w http.ResponseWriter, err error, context string) {
	var validation *demande.ValidationError
	var transition *demande.InvalidTransitionError

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error(), "")
	case errors.Is(err, demande.ErrNotFound):
		writeError(w, http.StatusNotFound, demande.ErrNotFound.Error(), "")
	case errors.Is(err, demande.ErrAlreadyCancelled):
		writeError(w, http.StatusBadRequest, demande.ErrAlreadyCancelled.Error(), "")
	case errors.As(err, &transition):
		writeError(w, http.StatusBadRequest, transition.Error(), "")
	default:
		h.log.WithError(err).Error(context)
		writeError(w, http.StatusInternalServerError, context, err.Error())
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Identifiant de demande invalide.", "")
		return 0, false
	}
	return id, true
}

// decodeComment reads the optional administrator comment. An empty body is
// treated as no comment.
func decodeComment(body io.ReadCloser) (string, error) {
	defer body.Close()

	var payload struct {
		Commentaire      string `json:"commentaire"`
		CommentaireAdmin string `json:"commentaire_admin"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", err
	}
	if payload.CommentaireAdmin != "" {
		return payload.CommentaireAdmin, nil
	}
	return payload.Commentaire, nil
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	return json.NewDecoder(body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{"error": message}
	if details != "" {
		resp["details"] = details
	}
	_ = json.NewEncoder(w).Encode(resp)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/davisshaver/audiencesync/pkg/contacts"
	"github.com/davisshaver/audiencesync/pkg/provider"
)

type subscribeRequest struct {
	Email    string            `json:"email"`
	Name     string            `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Lists    []string          `json:"lists,omitempty"`
	Async    bool              `json:"async,omitempty"`
	Reason   string            `json:"reason,omitempty"`
}

type updateListsRequest struct {
	Lists  []string `json:"lists"`
	Reason string   `json:"reason,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listLists(w http.ResponseWriter, r *http.Request) {
	all, err := h.catalog.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lists_unavailable", "could not load lists")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lists": all})
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, contacts.CodeInvalidUser, "email is required")
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "API subscribe"
	}

	contact := &provider.Contact{
		Email:    req.Email,
		Name:     SanitizeName(req.Name),
		Metadata: SanitizeMetadata(req.Metadata),
	}

	res, err := h.svc.Subscribe(r.Context(), contact, req.Lists, req.Async, reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if res.Queued {
		writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contact":  res.Contact,
		"updating": res.Updating,
	})
}

func (h *Handler) updateLists(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		writeError(w, http.StatusBadRequest, contacts.CodeInvalidUser, "invalid email")
		return
	}

	var req updateListsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "API update lists"
	}

	status, err := h.svc.UpdateLists(r.Context(), email, req.Lists, reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"updated": status == contacts.ListsUpdated,
	})
}

func (h *Handler) deleteContact(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		writeError(w, http.StatusBadRequest, contacts.CodeInvalidUser, "invalid email")
		return
	}

	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "API delete"
	}

	if err := h.svc.Delete(r.Context(), email, reason); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// writeEngineError maps engine error codes onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	code := contacts.ErrorCode(err)
	status := http.StatusBadGateway
	switch code {
	case contacts.CodeInvalidUser:
		status = http.StatusBadRequest
	case contacts.CodeInvalidProvider, contacts.CodeInvalidProviderMethod, contacts.CodeNotSupported:
		status = http.StatusNotImplemented
	}

	var el *contacts.ErrorList
	if errors.As(err, &el) {
		writeJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":     code,
				"message":  el.Error(),
				"codes":    el.Codes(),
				"messages": el.Messages(),
			},
		})
		return
	}

	if code == "" {
		code = "provider_error"
	}
	writeError(w, status, code, err.Error())
}

package invite

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/invitera/invitera/backend-go/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
}

type updateRequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	inv, err := h.service.Create(r.Context(), req.Title, req.Category, userID)
	if err != nil {
		slog.Error("create invitation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, inv)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	invitationID := mux.Vars(r)["invitationId"]

	inv, err := h.service.Get(r.Context(), invitationID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	invs, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list invitations failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

// Browse is the public marketplace listing. ?category= narrows it.
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	invs, err := h.service.Browse(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		slog.Error("browse invitations failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

// Resolve serves a published invitation by share slug: metadata plus the
// latest document, for the public viewer.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	inv, doc, err := h.service.Resolve(r.Context(), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"invitation": inv,
		"document":   doc,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	invitationID := mux.Vars(r)["invitationId"]

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	inv, err := h.service.Update(r.Context(), invitationID, userID, req.Title, req.Description, req.Category)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	invitationID := mux.Vars(r)["invitationId"]

	inv, err := h.service.Publish(r.Context(), invitationID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) Unpublish(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	invitationID := mux.Vars(r)["invitationId"]

	inv, err := h.service.Unpublish(r.Context(), invitationID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	invitationID := mux.Vars(r)["invitationId"]

	if err := h.service.Delete(r.Context(), invitationID, userID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	invitationID := mux.Vars(r)["invitationId"]

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	if err := h.service.InviteByEmail(r.Context(), invitationID, userID, req.Email, req.Role); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "invited"})
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	invitationID := mux.Vars(r)["invitationId"]

	members, err := h.service.ListMembers(r.Context(), invitationID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	invitationID := mux.Vars(r)["invitationId"]
	targetUserID := mux.Vars(r)["userId"]

	if err := h.service.RemoveMember(r.Context(), invitationID, userID, targetUserID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	invitationID := mux.Vars(r)["invitationId"]

	doc, err := h.service.GetLatestSnapshot(r.Context(), invitationID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	invitationID := mux.Vars(r)["invitationId"]

	var doc json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.service.SaveSnapshot(r.Context(), invitationID, userID, doc); err != nil {
		if errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotMember) || errors.Is(err, ErrNotFound) {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, ErrNotMember):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not an invitation member"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

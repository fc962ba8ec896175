// Package api exposes HTTP handlers for the activities service.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dascally/skills-getting-started-with-github-copilot/internal/domain"
	"github.com/dascally/skills-getting-started-with-github-copilot/internal/i18n"
)

// IndexPath is where the root path redirects.
const IndexPath = "/static/index.html"

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service    *domain.Service
	translator *i18n.Translator
	logger     *log.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, translator *i18n.Translator) *Handler {
	return &Handler{
		service:    service,
		translator: translator,
		logger:     log.New(log.Writer(), "[api] ", log.LstdFlags),
	}
}

// Routes registers the activity endpoints on the given chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", root)
	r.Get("/healthz", healthz)
	r.Get("/activities", h.listActivities)
	r.Post("/activities/{name}/signup", h.signup)
	r.Delete("/activities/{name}/unregister", h.unregister)
}

func root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, IndexPath, http.StatusTemporaryRedirect)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListActivities(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := make(ListActivitiesResponse, len(activities))
	for name, activity := range activities {
		resp[name] = toActivityView(activity)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	name, email, ok := h.rosterParams(w, r)
	if !ok {
		return
	}

	activity, err := h.service.Signup(r.Context(), name, email)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: h.translate(r, i18n.MsgSignupSuccess, map[string]any{"Email": email, "Activity": activity.Name}),
	})
}

func (h *Handler) unregister(w http.ResponseWriter, r *http.Request) {
	name, email, ok := h.rosterParams(w, r)
	if !ok {
		return
	}

	activity, err := h.service.Unregister(r.Context(), name, email)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: h.translate(r, i18n.MsgUnregisterSuccess, map[string]any{"Email": email, "Activity": activity.Name}),
	})
}

// rosterParams extracts the activity name and email, writing a 422 when email is missing.
func (h *Handler) rosterParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	name := chi.URLParam(r, "name")
	// chi matches against RawPath when the path holds escapes such as %2F.
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
	}

	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		h.writeFailure(w, r, http.StatusUnprocessableEntity, i18n.MsgEmailRequired)
		return "", "", false
	}
	return name, email, true
}

// writeDomainError maps domain sentinels to status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		h.writeFailure(w, r, http.StatusNotFound, i18n.MsgActivityNotFound)
	case errors.Is(err, domain.ErrAlreadyRegistered):
		h.writeFailure(w, r, http.StatusBadRequest, i18n.MsgAlreadySignedUp)
	case errors.Is(err, domain.ErrNotRegistered):
		h.writeFailure(w, r, http.StatusBadRequest, i18n.MsgNotSignedUp)
	default:
		h.logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		h.writeFailure(w, r, http.StatusInternalServerError, i18n.MsgInternalError)
	}
}

// writeFailure always reports detail in English; a translation for the
// caller's Accept-Language goes in localized_detail when it differs.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, status int, key string) {
	resp := ErrorResponse{Detail: h.translator.English(key, nil)}
	if localized := h.translate(r, key, nil); localized != resp.Detail {
		resp.LocalizedDetail = localized
	}
	writeJSON(w, status, resp)
}

func (h *Handler) translate(r *http.Request, key string, data map[string]any) string {
	return h.translator.T(r.Header.Get("Accept-Language"), key, data)
}

// ActivityView is the JSON shape of one activity in the listing.
type ActivityView struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// ListActivitiesResponse maps activity name to its details.
type ListActivitiesResponse map[string]ActivityView

// MessageResponse confirms a successful roster change.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse carries a human-readable failure reason. Detail is stable
// English text clients may match on.
type ErrorResponse struct {
	Detail          string `json:"detail"`
	LocalizedDetail string `json:"localized_detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func toActivityView(activity domain.Activity) ActivityView {
	participants := activity.Participants
	if participants == nil {
		participants = []string{}
	}
	return ActivityView{
		Description:     activity.Description,
		Schedule:        activity.Schedule,
		MaxParticipants: activity.MaxParticipants,
		Participants:    participants,
	}
}

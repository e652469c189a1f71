package api

import (
	"net/http"

	"github.com/garnizeh/hirehub/internal/application"
	"github.com/garnizeh/hirehub/internal/credential"
	"github.com/garnizeh/hirehub/pkg/models"
)

type ApplicationsHandler struct {
	apps *application.Service
}

func NewApplicationsHandler(apps *application.Service) *ApplicationsHandler {
	return &ApplicationsHandler{apps: apps}
}

type applyRequest struct {
	UserID int64  `json:"userId"`
	JobID  int64  `json:"jobId"`
	Resume string `json:"resume,omitempty"`
}

type applyResponse struct {
	Message     string              `json:"message"`
	Application *models.Application `json:"application"`
}

type statusRequest struct {
	NewStatus string `json:"newStatus"`
}

type statusResponse struct {
	Message            string                  `json:"message"`
	UpdatedApplication *models.ApplicationView `json:"updatedApplication"`
}

// canManage reports whether c may act on applications to a job owned by
// recruiterID.
func canManage(c credential.Claims, recruiterID int64) bool {
	switch cl := c.(type) {
	case credential.AdminClaims:
		return true
	case credential.RecruiterClaims:
		return cl.RecruiterID != 0 && cl.RecruiterID == recruiterID
	default:
		return false
	}
}

// Apply submits an application for the calling seeker. A userId in the body
// must match the token.
func (h *ApplicationsHandler) Apply(w http.ResponseWriter, r *http.Request) {
	c := mustClaims(r)
	var req applyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.UserID == 0 {
		req.UserID = c.Subject()
	}
	if req.UserID != c.Subject() {
		writeError(w, r, models.ErrForbidden)
		return
	}

	app, err := h.apps.Apply(r.Context(), req.UserID, req.JobID, req.Resume)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, applyResponse{Message: "Application submitted successfully", Application: app})
}

func (h *ApplicationsHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c := mustClaims(r)
	if c.Role() != models.RoleAdmin && c.Subject() != userID {
		writeError(w, r, models.ErrForbidden)
		return
	}

	list, err := h.apps.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListAll returns every application to admins and the applications to their
// own jobs to recruiters.
func (h *ApplicationsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	var (
		list []models.ApplicationView
		err  error
	)
	if rc, ok := mustClaims(r).(credential.RecruiterClaims); ok {
		list, err = h.apps.ListForRecruiter(r.Context(), rc.RecruiterID)
	} else {
		list, err = h.apps.ListAll(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ApplicationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, ok := h.load(w, r)
	if !ok {
		return
	}
	c := mustClaims(r)
	if c.Subject() != v.UserID && !canManage(c, v.Job.RecruiterID) {
		writeError(w, r, models.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *ApplicationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	v, ok := h.load(w, r)
	if !ok {
		return
	}
	if !canManage(mustClaims(r), v.Job.RecruiterID) {
		writeError(w, r, models.ErrForbidden)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.apps.UpdateStatus(r.Context(), v.ID, req.NewStatus)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Message: "Application status updated", UpdatedApplication: updated})
}

// Withdraw lets the applicant pull a pending application.
func (h *ApplicationsHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	v, ok := h.load(w, r)
	if !ok {
		return
	}
	if mustClaims(r).Subject() != v.UserID {
		writeError(w, r, models.ErrForbidden)
		return
	}
	if err := h.apps.Withdraw(r.Context(), v.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Application withdrawn successfully")
}

func (h *ApplicationsHandler) load(w http.ResponseWriter, r *http.Request) (*models.ApplicationView, bool) {
	id, err := pathID(r, "applicationId")
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	v, err := h.apps.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return v, true
}

// mustClaims is only used behind JWTAuthMiddleware.
func mustClaims(r *http.Request) credential.Claims {
	c, ok := ClaimsFrom(r.Context())
	if !ok {
		panic("api: handler mounted without JWTAuthMiddleware")
	}
	return c
}

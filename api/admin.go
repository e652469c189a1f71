package api

import (
	"net/http"

	"github.com/garnizeh/hirehub/internal/account"
	"github.com/garnizeh/hirehub/pkg/models"
)

type AdminHandler struct {
	accounts *account.Service
}

func NewAdminHandler(accounts *account.Service) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

type recruiterResponse struct {
	Message   string            `json:"message"`
	Recruiter *models.Recruiter `json:"recruiter"`
}

func (h *AdminHandler) ListRecruiters(w http.ResponseWriter, r *http.Request) {
	list, err := h.accounts.ListRecruiters(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ToggleRecruiter flips a recruiter between active and deactivated.
func (h *AdminHandler) ToggleRecruiter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "recruiterId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.accounts.ToggleRecruiter(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Recruiter deactivated"
	if rec.Active {
		msg = "Recruiter activated"
	}
	writeJSON(w, http.StatusOK, recruiterResponse{Message: msg, Recruiter: rec})
}

func (h *AdminHandler) DeleteRecruiter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "recruiterId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.accounts.DeleteRecruiter(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Recruiter and associated jobs deleted successfully")
}

type toggleUserResponse struct {
	Message string          `json:"message"`
	User    *models.Account `json:"user"`
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.accounts.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ToggleUser flips an account between active and deactivated. Admins cannot
// lock themselves out.
func (h *AdminHandler) ToggleUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.otherUser(w, r)
	if !ok {
		return
	}
	acct, err := h.accounts.ToggleUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "User deactivated"
	if acct.Active {
		msg = "User activated"
	}
	writeJSON(w, http.StatusOK, toggleUserResponse{Message: msg, User: acct})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.otherUser(w, r)
	if !ok {
		return
	}
	if err := h.accounts.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User and associated data deleted successfully")
}

// otherUser reads the userId path variable and refuses the caller's own id.
func (h *AdminHandler) otherUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return 0, false
	}
	if mustClaims(r).Subject() == id {
		writeError(w, r, models.ErrForbidden)
		return 0, false
	}
	return id, true
}

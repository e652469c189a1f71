package api

import (
	"context"
	"net/http"

	"github.com/garnizeh/hirehub/internal/account"
	"github.com/garnizeh/hirehub/pkg/models"
)

type AuthHandler struct {
	accounts *account.Service
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(accounts *account.Service) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetVerifyRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

type userResponse struct {
	ID          int64       `json:"id"`
	FullName    string      `json:"full_name"`
	Email       string      `json:"email"`
	Role        models.Role `json:"user_type"`
	RecruiterID int64       `json:"recruiter_id,omitempty"`
	CompanyID   int64       `json:"company_id,omitempty"`
}

type loginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    userResponse `json:"user"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req account.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.accounts.RequestSignup(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "OTP sent to your email")
}

func (h *AuthHandler) VerifySignup(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.accounts.VerifySignup(r.Context(), req.Email, req.OTP); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Account created successfully")
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.accounts.Login)
}

func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.accounts.AdminLogin)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, email, password string) (*account.LoginResult, error)) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := fn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := userResponse{
		ID:       res.Account.ID,
		FullName: res.Account.FullName,
		Email:    res.Account.Email,
		Role:     res.Account.Role,
	}
	if res.Recruiter != nil {
		user.RecruiterID = res.Recruiter.ID
		user.CompanyID = res.Recruiter.CompanyID
	}
	writeJSON(w, http.StatusOK, loginResponse{Message: "Login successful", Token: res.Token, User: user})
}

func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.accounts.RequestReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "OTP sent to your email")
}

func (h *AuthHandler) VerifyReset(w http.ResponseWriter, r *http.Request) {
	var req resetVerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.accounts.VerifyReset(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successfully")
}

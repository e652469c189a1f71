package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/garnizeh/hirehub/internal/credential"
	"github.com/garnizeh/hirehub/internal/otp"
	"github.com/garnizeh/hirehub/pkg/models"
)

type loginBody struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID          int64  `json:"id"`
		Email       string `json:"email"`
		Role        string `json:"user_type"`
		RecruiterID int64  `json:"recruiter_id"`
	} `json:"user"`
}

func signupBody(email string) map[string]string {
	return map[string]string{
		"full_name": "Alice",
		"email":     email,
		"password":  "Str0ng!pw",
		"user_type": "seeker",
	}
}

func TestSignupVerifyLogin(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	w := ts.do(t, http.MethodPost, "/auth/signup", "", signupBody("a@x.com"))
	if w.Code != http.StatusOK {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}
	entry, err := ts.otps.Get(ctx, otp.SignupKey("a@x.com"))
	if err != nil {
		t.Fatalf("pending registration missing: %v", err)
	}

	w = ts.do(t, http.MethodPost, "/auth/signup/verify", "", map[string]string{"email": "a@x.com", "otp": entry.Code})
	if w.Code != http.StatusCreated {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}
	w = ts.do(t, http.MethodPost, "/auth/signup/verify", "", map[string]string{"email": "a@x.com", "otp": entry.Code})
	expectError(t, w, http.StatusBadRequest, "otp_invalid_or_expired")

	w = ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "Str0ng!pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	lb := decode[loginBody](t, w)
	if lb.Token == "" || lb.User.Email != "a@x.com" || lb.User.Role != "seeker" {
		t.Fatalf("unexpected login body %+v", lb)
	}
	claims, err := ts.creds.VerifyToken(lb.Token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if _, ok := claims.(credential.SeekerClaims); !ok || claims.Subject() != lb.User.ID {
		t.Fatalf("claims = %#v", claims)
	}
}

func TestAuthErrors(t *testing.T) {
	ts := newTestServer(t)
	hash, _ := ts.creds.Hash("Str0ng!pw")
	ts.repo.PutAccount(models.Account{ID: 5, FullName: "Bob", Email: "bob@x.com", PasswordHash: hash, Role: models.RoleSeeker, Active: true})

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"signup bad json", "/auth/signup", "not a json", http.StatusBadRequest, "validation_error"},
		{"signup weak password", "/auth/signup", map[string]string{"full_name": "A", "email": "c@x.com", "password": "weak", "user_type": "seeker"}, http.StatusBadRequest, "validation_error"},
		{"signup duplicate", "/auth/signup", signupBody("bob@x.com"), http.StatusConflict, "duplicate_account"},
		{"verify unknown", "/auth/signup/verify", map[string]string{"email": "nobody@x.com", "otp": "123456"}, http.StatusBadRequest, "otp_invalid_or_expired"},
		{"login unknown", "/auth/login", map[string]string{"email": "nobody@x.com", "password": "Str0ng!pw"}, http.StatusNotFound, "account_not_found"},
		{"login wrong password", "/auth/login", map[string]string{"email": "bob@x.com", "password": "Wr0ng!pw"}, http.StatusUnauthorized, "invalid_credentials"},
		{"login missing fields", "/auth/login", map[string]string{"email": "bob@x.com"}, http.StatusBadRequest, "validation_error"},
		{"admin login as seeker", "/admin/auth/login", map[string]string{"email": "bob@x.com", "password": "Str0ng!pw"}, http.StatusUnauthorized, "invalid_credentials"},
		{"reset unknown", "/reset-password/request", map[string]string{"email": "nobody@x.com"}, http.StatusNotFound, "account_not_found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, tc.path, "", tc.body)
			expectError(t, w, tc.status, tc.code)
			if tc.status == http.StatusUnauthorized {
				if lb := decode[loginBody](t, w); lb.Token != "" {
					t.Fatalf("failed login returned a token")
				}
			}
		})
	}
}

func TestPasswordReset(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	hash, _ := ts.creds.Hash("Str0ng!pw")
	ts.repo.PutAccount(models.Account{ID: 5, FullName: "Bob", Email: "bob@x.com", PasswordHash: hash, Role: models.RoleSeeker, Active: true})

	if w := ts.do(t, http.MethodPost, "/reset-password/request", "", map[string]string{"email": "bob@x.com"}); w.Code != http.StatusOK {
		t.Fatalf("request reset: %d %s", w.Code, w.Body.String())
	}
	entry, err := ts.otps.Get(ctx, otp.ResetKey("bob@x.com"))
	if err != nil {
		t.Fatalf("reset entry missing: %v", err)
	}

	w := ts.do(t, http.MethodPost, "/reset-password/verify", "", map[string]string{"email": "bob@x.com", "otp": entry.Code, "new_password": "N3w!passw"})
	if w.Code != http.StatusOK {
		t.Fatalf("verify reset: %d %s", w.Code, w.Body.String())
	}

	if w := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "bob@x.com", "password": "N3w!passw"}); w.Code != http.StatusOK {
		t.Fatalf("login with new password: %d %s", w.Code, w.Body.String())
	}
	w = ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "bob@x.com", "password": "Str0ng!pw"})
	expectError(t, w, http.StatusUnauthorized, "invalid_credentials")
}

func TestAdminLoginAndModeration(t *testing.T) {
	ts := newTestServer(t)
	hash, _ := ts.creds.Hash("Adm1n!pass")
	ts.repo.PutAccount(models.Account{ID: 1, FullName: "Root", Email: "admin@x.com", PasswordHash: hash, Role: models.RoleAdmin, Active: true})
	_, rec := ts.recruiterToken(t, "rita@acme.io", "Acme")

	w := ts.do(t, http.MethodPost, "/admin/auth/login", "", map[string]string{"email": "admin@x.com", "password": "Adm1n!pass"})
	if w.Code != http.StatusOK {
		t.Fatalf("admin login: %d %s", w.Code, w.Body.String())
	}
	adminTok := decode[loginBody](t, w).Token

	seekerTok := ts.seekerToken(t, 50, "s@x.com")
	expectError(t, ts.do(t, http.MethodGet, "/admin/recruiters", seekerTok, nil), http.StatusForbidden, "forbidden")

	w = ts.do(t, http.MethodGet, "/admin/recruiters", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list recruiters: %d %s", w.Code, w.Body.String())
	}
	if list := decode[[]models.Recruiter](t, w); len(list) != 1 || list[0].CompanyName != "Acme" {
		t.Fatalf("recruiters = %+v", list)
	}

	w = ts.do(t, http.MethodPut, "/admin/recruiters/"+itoa(rec.ID)+"/toggle", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle: %d %s", w.Code, w.Body.String())
	}
	toggled := decode[struct {
		Recruiter models.Recruiter `json:"recruiter"`
	}](t, w)
	if toggled.Recruiter.Active {
		t.Fatalf("recruiter should be deactivated")
	}

	expectError(t, ts.do(t, http.MethodPut, "/admin/recruiters/999/toggle", adminTok, nil), http.StatusNotFound, "recruiter_not_found")
}

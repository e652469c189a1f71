package credential

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/hirehub/pkg/models"
)

func newService(t *testing.T) *Service {
	t.Helper()
	s, err := New(Options{Secret: "test-secret", Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNew_EmptySecret(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
	if _, err := New(Options{Secret: "x", Cost: 99}); err == nil {
		t.Fatalf("expected error for out-of-range cost")
	}
}

func TestHashVerify(t *testing.T) {
	s := newService(t)
	h, err := s.Hash("Str0ng!pw")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h == "Str0ng!pw" {
		t.Fatalf("hash must not equal plaintext")
	}
	if !s.Verify("Str0ng!pw", h) {
		t.Fatalf("Verify should accept the right password")
	}
	if s.Verify("wrong", h) {
		t.Fatalf("Verify should reject a wrong password")
	}
	if s.Verify("Str0ng!pw", "not-a-hash") {
		t.Fatalf("Verify should reject a malformed hash")
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	s := newService(t)
	base := BaseClaims{UserID: 7, UserEmail: "a@x.com", Name: "Alice"}

	tests := []struct {
		name   string
		claims Claims
	}{
		{"seeker", SeekerClaims{BaseClaims: base}},
		{"recruiter", RecruiterClaims{BaseClaims: base, RecruiterID: 3, CompanyID: 9}},
		{"admin", AdminClaims{BaseClaims: base}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok, err := s.IssueToken(tc.claims)
			if err != nil {
				t.Fatalf("IssueToken: %v", err)
			}
			got, err := s.VerifyToken(tok)
			if err != nil {
				t.Fatalf("VerifyToken: %v", err)
			}
			if got != tc.claims {
				t.Fatalf("claims = %#v, want %#v", got, tc.claims)
			}
		})
	}
}

func TestTokenTTLByRole(t *testing.T) {
	s := newService(t)
	fixed := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	base := BaseClaims{UserID: 1, UserEmail: "a@x.com"}
	seekerTok, _ := s.IssueToken(SeekerClaims{BaseClaims: base})
	adminTok, _ := s.IssueToken(AdminClaims{BaseClaims: base})

	// six days later the seeker token is still valid, the admin one is not
	s.now = func() time.Time { return fixed.Add(6 * 24 * time.Hour) }
	if _, err := s.VerifyToken(seekerTok); err != nil {
		t.Fatalf("seeker token should still be valid: %v", err)
	}
	if _, err := s.VerifyToken(adminTok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("admin token should have expired, got %v", err)
	}

	s.now = func() time.Time { return fixed.Add(8 * 24 * time.Hour) }
	if _, err := s.VerifyToken(seekerTok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("seeker token should have expired, got %v", err)
	}
}

func TestVerifyToken_Rejects(t *testing.T) {
	s := newService(t)
	other, _ := New(Options{Secret: "other-secret", Cost: bcrypt.MinCost})
	foreign, _ := other.IssueToken(SeekerClaims{BaseClaims: BaseClaims{UserID: 1}})

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id":   1,
		"user_type": "admin",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	noneTok, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"user_id":   1,
		"user_type": "seeker",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	hs512Tok, _ := hs512.SignedString([]byte("test-secret"))

	unknownRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   1,
		"user_type": "superuser",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	unknownTok, _ := unknownRole.SignedString([]byte("test-secret"))

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 1, "user_type": "seeker"})
	noExpTok, _ := noExp.SignedString([]byte("test-secret"))

	tests := map[string]string{
		"garbage":        "not.a.token",
		"empty":          "",
		"wrong secret":   foreign,
		"alg none":       noneTok,
		"other hmac alg": hs512Tok,
		"unknown role":   unknownTok,
		"missing exp":    noExpTok,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := s.VerifyToken(tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestClaimsFor(t *testing.T) {
	acct := &models.Account{ID: 5, Email: "r@x.com", FullName: "Rita", Role: models.RoleRecruiter}
	c := ClaimsFor(acct, &models.Recruiter{ID: 11, CompanyID: 12})
	rc, ok := c.(RecruiterClaims)
	if !ok || rc.RecruiterID != 11 || rc.CompanyID != 12 || rc.Subject() != 5 {
		t.Fatalf("unexpected claims %#v", c)
	}

	acct.Role = models.RoleSeeker
	if _, ok := ClaimsFor(acct, nil).(SeekerClaims); !ok {
		t.Fatalf("expected seeker claims")
	}
}

func TestIssueToken_ClaimsPayload(t *testing.T) {
	s := newService(t)
	tok, _ := s.IssueToken(SeekerClaims{BaseClaims: BaseClaims{UserID: 42, UserEmail: "a@x.com", Name: "Alice"}})
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("expected compact JWS, got %q", tok)
	}

	var wire tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &wire); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if wire.UserID != 42 || wire.Subject != "42" || wire.Role != models.RoleSeeker || wire.FullName != "Alice" {
		t.Fatalf("unexpected wire claims %#v", wire)
	}
}

// Package credential hashes passwords and issues and verifies signed
// session tokens.
package credential

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/hirehub/pkg/models"
)

var (
	// ErrInvalidToken covers bad signatures, unexpected algorithms, expiry
	// and malformed claims.
	ErrInvalidToken = errors.New("credential: invalid or expired token")
	ErrEmptySecret  = errors.New("credential: signing secret is empty")
)

const (
	DefaultCost          = 10
	DefaultTokenTTL      = 7 * 24 * time.Hour
	DefaultAdminTokenTTL = 24 * time.Hour
)

type Options struct {
	Secret        string
	Cost          int
	TokenTTL      time.Duration
	AdminTokenTTL time.Duration
}

type Service struct {
	secret   []byte
	cost     int
	ttl      time.Duration
	adminTTL time.Duration
	now      func() time.Time
}

func New(opts Options) (*Service, error) {
	if opts.Secret == "" {
		return nil, ErrEmptySecret
	}
	if opts.Cost == 0 {
		opts.Cost = DefaultCost
	}
	if opts.Cost < bcrypt.MinCost || opts.Cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("credential: bcrypt cost %d out of range", opts.Cost)
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.AdminTokenTTL <= 0 {
		opts.AdminTokenTTL = DefaultAdminTokenTTL
	}
	return &Service{
		secret:   []byte(opts.Secret),
		cost:     opts.Cost,
		ttl:      opts.TokenTTL,
		adminTTL: opts.AdminTokenTTL,
		now:      time.Now,
	}, nil
}

func (s *Service) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (s *Service) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// tokenClaims is the wire form of every Claims variant.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID      int64       `json:"user_id"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name,omitempty"`
	Role        models.Role `json:"user_type"`
	RecruiterID int64       `json:"recruiter_id,omitempty"`
	CompanyID   int64       `json:"company_id,omitempty"`
}

// IssueToken signs c with HS256. Admin tokens use the shorter admin TTL.
func (s *Service) IssueToken(c Claims) (string, error) {
	if c == nil {
		return "", fmt.Errorf("credential: claims are nil")
	}

	ttl := s.ttl
	if c.Role() == models.RoleAdmin {
		ttl = s.adminTTL
	}
	now := s.now()

	wire := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(c.Subject(), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   c.Subject(),
		Email:    c.Email(),
		FullName: c.FullName(),
		Role:     c.Role(),
	}
	if rc, ok := c.(RecruiterClaims); ok {
		wire.RecruiterID = rc.RecruiterID
		wire.CompanyID = rc.CompanyID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, wire)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature, algorithm and expiry, then returns the typed
// claims the token carries.
func (s *Service) VerifyToken(token string) (Claims, error) {
	var wire tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &wire, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	base := BaseClaims{UserID: wire.UserID, UserEmail: wire.Email, Name: wire.FullName}
	switch wire.Role {
	case models.RoleSeeker:
		return SeekerClaims{BaseClaims: base}, nil
	case models.RoleRecruiter:
		return RecruiterClaims{BaseClaims: base, RecruiterID: wire.RecruiterID, CompanyID: wire.CompanyID}, nil
	case models.RoleAdmin:
		return AdminClaims{BaseClaims: base}, nil
	default:
		return nil, ErrInvalidToken
	}
}

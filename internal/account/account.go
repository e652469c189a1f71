// Package account implements OTP-gated signup, login, password reset and
// recruiter moderation.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/garnizeh/hirehub/internal/credential"
	"github.com/garnizeh/hirehub/internal/metrics"
	"github.com/garnizeh/hirehub/internal/notify"
	"github.com/garnizeh/hirehub/internal/otp"
	"github.com/garnizeh/hirehub/internal/validation"
	"github.com/garnizeh/hirehub/pkg/models"
	"github.com/garnizeh/hirehub/pkg/repository"
)

// Mailer sends templated email best-effort.
type Mailer interface {
	Email(ctx context.Context, to, tmpl string, data any) bool
}

type Options struct {
	OTPTTL    time.Duration
	OTPLength int
	Logger    *slog.Logger
	Metrics   metrics.Recorder
}

type Service struct {
	accounts   repository.AccountRepo
	recruiters repository.RecruiterRepo
	otps       otp.Store
	creds      *credential.Service
	mailer     Mailer
	otpTTL     time.Duration
	otpLength  int
	logger     *slog.Logger
	metrics    metrics.Recorder
}

func NewService(accounts repository.AccountRepo, recruiters repository.RecruiterRepo, otps otp.Store, creds *credential.Service, mailer Mailer, opts Options) *Service {
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = otp.DefaultTTL
	}
	if opts.OTPLength <= 0 {
		opts.OTPLength = otp.DefaultLength
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		accounts:   accounts,
		recruiters: recruiters,
		otps:       otps,
		creds:      creds,
		mailer:     mailer,
		otpTTL:     opts.OTPTTL,
		otpLength:  opts.OTPLength,
		logger:     opts.Logger,
		metrics:    metrics.OrNop(opts.Metrics),
	}
}

// SignupRequest is the pending registration. It is stored verbatim, password
// included, until the OTP is verified.
type SignupRequest struct {
	FullName   string      `json:"full_name" validate:"required,max=200"`
	Email      string      `json:"email" validate:"required,email,max=254"`
	Password   string      `json:"password" validate:"required,strongpassword"`
	MobileNo   string      `json:"mobile_no,omitempty" validate:"max=32"`
	WorkStatus string      `json:"work_status,omitempty" validate:"max=64"`
	UserType   models.Role `json:"user_type" validate:"required,oneof=seeker recruiter"`

	// Recruiter signups only.
	CompanyName     string `json:"company_name,omitempty" validate:"required_if=UserType recruiter,max=200"`
	CompanyInfo     string `json:"company_info,omitempty" validate:"max=2000"`
	CompanyLocation string `json:"company_location,omitempty" validate:"max=200"`
	Industry        string `json:"industry,omitempty" validate:"max=200"`
	Website         string `json:"website,omitempty" validate:"omitempty,url"`
}

type LoginResult struct {
	Token     string
	Account   *models.Account
	Recruiter *models.Recruiter
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestSignup validates req, parks it in the OTP store and emails the code.
// A send failure is logged only; the code stays retrievable from the log
// notifier in development.
func (s *Service) RequestSignup(ctx context.Context, req SignupRequest) error {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if err := validation.Struct(req); err != nil {
		return err
	}

	existing, err := s.accounts.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		return models.StorageErr("lookup account", err)
	}
	if existing != nil {
		return models.ErrDuplicateAccount
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode pending registration: %w", err)
	}
	if err := s.issueOTP(ctx, otp.SignupKey(req.Email), req.Email, payload, "signup"); err != nil {
		return err
	}

	s.metrics.RecordSignup("requested")
	s.logger.Info("signup otp issued", slog.String("email", req.Email), slog.String("user_type", string(req.UserType)))
	return nil
}

func (s *Service) issueOTP(ctx context.Context, key, email string, payload json.RawMessage, purpose string) error {
	code, err := otp.GenerateCode(s.otpLength)
	if err != nil {
		return err
	}
	if err := s.otps.Put(ctx, key, payload, code, s.otpTTL); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	s.mailer.Email(ctx, email, notify.TemplateOTP, notify.OTPData{
		Code:       code,
		Purpose:    purpose,
		TTLMinutes: int(s.otpTTL.Round(time.Minute) / time.Minute),
	})
	return nil
}

// VerifySignup consumes the OTP and creates the account. It does not log the
// user in.
func (s *Service) VerifySignup(ctx context.Context, email, code string) (*models.Account, error) {
	email = normalizeEmail(email)
	if err := validation.Var("email", email, "required,email"); err != nil {
		return nil, err
	}
	if err := validation.Var("otp", code, "required"); err != nil {
		return nil, err
	}

	payload, err := s.otps.Consume(ctx, otp.SignupKey(email), strings.TrimSpace(code))
	if err != nil {
		return nil, models.ErrOtpInvalidOrExpired
	}

	var req SignupRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode pending registration: %w", err)
	}

	hash, err := s.creds.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	acct := &models.Account{
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.MobileNo,
		WorkStatus:   req.WorkStatus,
		Role:         req.UserType,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}

	switch req.UserType {
	case models.RoleRecruiter:
		company := &models.Company{
			Name:     req.CompanyName,
			Info:     req.CompanyInfo,
			Location: req.CompanyLocation,
			Industry: req.Industry,
			Website:  req.Website,
		}
		if _, err := s.recruiters.CreateRecruiterAccount(ctx, acct, company); err != nil {
			return nil, s.mapCreateErr(err)
		}
	default:
		id, err := s.accounts.CreateAccount(ctx, acct)
		if err != nil {
			return nil, s.mapCreateErr(err)
		}
		acct.ID = id
	}

	s.metrics.RecordSignup("verified")
	s.logger.Info("account created", slog.Int64("account_id", acct.ID), slog.String("role", string(acct.Role)))
	return acct, nil
}

func (s *Service) mapCreateErr(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return models.ErrDuplicateAccount
	}
	return models.StorageErr("create account", err)
}

// Login checks the password and issues a token for the account's role.
// Deactivated recruiters are refused after the password check.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	res, err := s.login(ctx, email, password)
	s.recordLogin(err)
	return res, err
}

// AdminLogin is Login restricted to admin accounts.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	res, err := s.login(ctx, email, password)
	if err == nil && res.Account.Role != models.RoleAdmin {
		res, err = nil, models.ErrInvalidCredentials
	}
	s.recordLogin(err)
	return res, err
}

func (s *Service) login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if err := validation.Var("email", email, "required"); err != nil {
		return nil, err
	}
	if err := validation.Var("password", password, "required"); err != nil {
		return nil, err
	}

	acct, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, models.StorageErr("lookup account", err)
	}
	if acct == nil {
		return nil, models.ErrAccountNotFound
	}
	if !s.creds.Verify(password, acct.PasswordHash) {
		return nil, models.ErrInvalidCredentials
	}

	if !acct.Active {
		return nil, models.ErrAccountDeactivated
	}

	var rec *models.Recruiter
	if acct.Role == models.RoleRecruiter {
		rec, err = s.recruiters.GetRecruiterByAccountID(ctx, acct.ID)
		if err != nil {
			return nil, models.StorageErr("lookup recruiter", err)
		}
	}

	token, err := s.creds.IssueToken(credential.ClaimsFor(acct, rec))
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Account: acct, Recruiter: rec}, nil
}

func (s *Service) recordLogin(err error) {
	switch {
	case err == nil:
		s.metrics.RecordLogin("success")
	case errors.Is(err, models.ErrAccountNotFound):
		s.metrics.RecordLogin("not_found")
	case errors.Is(err, models.ErrInvalidCredentials):
		s.metrics.RecordLogin("invalid_credentials")
	case errors.Is(err, models.ErrAccountDeactivated):
		s.metrics.RecordLogin("deactivated")
	default:
		s.metrics.RecordLogin("error")
	}
}

type resetPayload struct {
	AccountID int64 `json:"account_id"`
}

// RequestReset emails a reset code to an existing account.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validation.Var("email", email, "required,email"); err != nil {
		return err
	}

	acct, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return models.StorageErr("lookup account", err)
	}
	if acct == nil {
		return models.ErrAccountNotFound
	}

	payload, err := json.Marshal(resetPayload{AccountID: acct.ID})
	if err != nil {
		return err
	}
	if err := s.issueOTP(ctx, otp.ResetKey(email), email, payload, "reset"); err != nil {
		return err
	}
	s.logger.Info("reset otp issued", slog.Int64("account_id", acct.ID))
	return nil
}

// VerifyReset consumes the reset code and overwrites the password hash. The
// new password is checked before the code is spent.
func (s *Service) VerifyReset(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := validation.Var("email", email, "required,email"); err != nil {
		return err
	}
	if err := validation.Var("otp", code, "required"); err != nil {
		return err
	}
	if err := validation.Var("new_password", newPassword, "required,strongpassword"); err != nil {
		return err
	}

	payload, err := s.otps.Consume(ctx, otp.ResetKey(email), strings.TrimSpace(code))
	if err != nil {
		return models.ErrOtpInvalidOrExpired
	}
	var p resetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode reset payload: %w", err)
	}

	hash, err := s.creds.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, p.AccountID, hash); err != nil {
		return models.StorageErr("update password", err)
	}
	s.logger.Info("password reset", slog.Int64("account_id", p.AccountID))
	return nil
}

func (s *Service) ListRecruiters(ctx context.Context) ([]models.Recruiter, error) {
	list, err := s.recruiters.ListRecruiters(ctx)
	if err != nil {
		return nil, models.StorageErr("list recruiters", err)
	}
	return list, nil
}

// SetRecruiterActive enables or disables a recruiter's login.
func (s *Service) SetRecruiterActive(ctx context.Context, recruiterID int64, active bool) (*models.Recruiter, error) {
	rec, err := s.recruiters.GetRecruiterByID(ctx, recruiterID)
	if err != nil {
		return nil, models.StorageErr("lookup recruiter", err)
	}
	if rec == nil {
		return nil, models.ErrRecruiterNotFound
	}
	if err := s.accounts.SetAccountActive(ctx, rec.AccountID, active); err != nil {
		return nil, models.StorageErr("set account active", err)
	}
	rec.Active = active
	s.logger.Info("recruiter moderated", slog.Int64("recruiter_id", recruiterID), slog.Bool("active", active))
	return rec, nil
}

// ToggleRecruiter flips the recruiter's active flag.
func (s *Service) ToggleRecruiter(ctx context.Context, recruiterID int64) (*models.Recruiter, error) {
	rec, err := s.recruiters.GetRecruiterByID(ctx, recruiterID)
	if err != nil {
		return nil, models.StorageErr("lookup recruiter", err)
	}
	if rec == nil {
		return nil, models.ErrRecruiterNotFound
	}
	return s.SetRecruiterActive(ctx, recruiterID, !rec.Active)
}

// ListUsers returns every account, admins included.
func (s *Service) ListUsers(ctx context.Context) ([]models.Account, error) {
	list, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, models.StorageErr("list accounts", err)
	}
	return list, nil
}

func (s *Service) getAccount(ctx context.Context, id int64) (*models.Account, error) {
	acct, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		return nil, models.StorageErr("lookup account", err)
	}
	if acct == nil {
		return nil, models.ErrAccountNotFound
	}
	return acct, nil
}

// ToggleUser flips the account's active flag. A deactivated account cannot
// log in.
func (s *Service) ToggleUser(ctx context.Context, id int64) (*models.Account, error) {
	acct, err := s.getAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	acct.Active = !acct.Active
	if err := s.accounts.SetAccountActive(ctx, id, acct.Active); err != nil {
		return nil, models.StorageErr("set account active", err)
	}
	s.logger.Info("account moderated", slog.Int64("account_id", id), slog.Bool("active", acct.Active))
	return acct, nil
}

// DeleteUser removes the account with its applications, notifications and,
// for recruiters, the recruiter's jobs.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.getAccount(ctx, id); err != nil {
		return err
	}
	if err := s.accounts.DeleteAccount(ctx, id); err != nil {
		return models.StorageErr("delete account", err)
	}
	s.logger.Info("account deleted", slog.Int64("account_id", id))
	return nil
}

// DeleteRecruiter removes the recruiter's jobs, the applications to them and
// the recruiter record. The login account stays but can no longer post.
func (s *Service) DeleteRecruiter(ctx context.Context, recruiterID int64) error {
	rec, err := s.recruiters.GetRecruiterByID(ctx, recruiterID)
	if err != nil {
		return models.StorageErr("lookup recruiter", err)
	}
	if rec == nil {
		return models.ErrRecruiterNotFound
	}
	if err := s.recruiters.DeleteRecruiter(ctx, recruiterID); err != nil {
		return models.StorageErr("delete recruiter", err)
	}
	s.logger.Info("recruiter deleted", slog.Int64("recruiter_id", recruiterID), slog.Int64("account_id", rec.AccountID))
	return nil
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/hirehub/api"
	"github.com/garnizeh/hirehub/internal/account"
	"github.com/garnizeh/hirehub/internal/application"
	"github.com/garnizeh/hirehub/internal/credential"
	"github.com/garnizeh/hirehub/internal/job"
	"github.com/garnizeh/hirehub/internal/metrics"
	"github.com/garnizeh/hirehub/internal/notify"
	"github.com/garnizeh/hirehub/internal/otp"
	"github.com/garnizeh/hirehub/pkg/models"
	"github.com/garnizeh/hirehub/pkg/repository/mock"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func init() {
	api.SetLogger(quiet)
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (c *captureNotifier) Send(ctx context.Context, msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

type testServer struct {
	h       http.Handler
	repo    *mock.Repo
	otps    *otp.MemoryStore
	creds   *credential.Service
	mail    *captureNotifier
	limiter *api.RateLimiter
	reg     *prometheus.Registry
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithLimiter(t, api.NewRateLimiter(api.RateLimiterConfig{PerMinute: 600, Burst: 100}))
}

func newTestServerWithLimiter(t *testing.T, limiter *api.RateLimiter) *testServer {
	t.Helper()
	ts := &testServer{
		repo:    mock.NewRepo(),
		otps:    otp.NewMemoryStore(),
		mail:    &captureNotifier{},
		limiter: limiter,
		reg:     prometheus.NewRegistry(),
	}
	creds, err := credential.New(credential.Options{Secret: "test-secret", Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("credential.New: %v", err)
	}
	ts.creds = creds
	rec := metrics.NewCollector(ts.reg)

	d := notify.NewDispatcher(ts.mail, ts.repo, notify.DispatcherOptions{Logger: quiet, Metrics: rec})
	accounts := account.NewService(ts.repo, ts.repo, ts.otps, creds, d, account.Options{Logger: quiet, Metrics: rec})
	apps := application.NewService(ts.repo, ts.repo, ts.repo, d, application.Options{Logger: quiet, Metrics: rec})
	jobs, err := job.NewService(ts.repo, ts.repo, job.Options{Logger: quiet})
	if err != nil {
		t.Fatalf("job.NewService: %v", err)
	}

	ts.h = api.SetupRoutes(api.Deps{
		Version:       "1.2.3",
		BuildTime:     "2025-08-24T00:00:00Z",
		Accounts:      accounts,
		Applications:  apps,
		Jobs:          jobs,
		Notifications: ts.repo,
		Tokens:        creds,
		OTPLimiter:    limiter,
		Metrics:       rec,
		Gatherer:      ts.reg,
	})
	return ts
}

// do sends body (marshalled unless it is a string) with an optional bearer
// token and returns the recorded response.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.h.ServeHTTP(w, req)
	return w
}

func (ts *testServer) token(t *testing.T, c credential.Claims) string {
	t.Helper()
	tok, err := ts.creds.IssueToken(c)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

// seekerToken stores a seeker account with the given id and returns a token for it.
func (ts *testServer) seekerToken(t *testing.T, id int64, email string) string {
	ts.repo.PutAccount(models.Account{ID: id, FullName: "Seeker", Email: email, Role: models.RoleSeeker, Active: true})
	return ts.token(t, credential.SeekerClaims{BaseClaims: credential.BaseClaims{UserID: id, UserEmail: email}})
}

func (ts *testServer) recruiterToken(t *testing.T, email, company string) (string, *models.Recruiter) {
	t.Helper()
	a := &models.Account{FullName: "Rita", Email: email, Active: true}
	rec, err := ts.repo.CreateRecruiterAccount(context.Background(), a, &models.Company{Name: company})
	if err != nil {
		t.Fatalf("seed recruiter: %v", err)
	}
	return ts.token(t, credential.RecruiterClaims{
		BaseClaims:  credential.BaseClaims{UserID: a.ID, UserEmail: email},
		RecruiterID: rec.ID,
		CompanyID:   rec.CompanyID,
	}), rec
}

func (ts *testServer) adminToken(t *testing.T) string {
	return ts.token(t, credential.AdminClaims{BaseClaims: credential.BaseClaims{UserID: 9000, UserEmail: "admin@hirehub.local"}})
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, status, w.Body.String())
	}
	e := decode[errorBody](t, w)
	if e.Code != code || e.Message == "" {
		t.Fatalf("error body = %+v, want code %q", e, code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

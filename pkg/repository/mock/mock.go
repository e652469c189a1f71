package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/garnizeh/hirehub/pkg/models"
	"github.com/garnizeh/hirehub/pkg/repository"
)

// Repo is an in-memory implementation of every repository interface, used by
// service and handler tests. The *Err fields force the matching call to fail.
type Repo struct {
	mu sync.Mutex

	accounts      map[int64]*models.Account
	companies     map[int64]*models.Company
	recruiters    map[int64]*models.Recruiter
	jobs          map[int64]*models.Job
	applications  map[int64]*models.Application
	notifications map[int64]*models.Notification
	nextID        int64

	CreateAccountErr      error
	CreateApplicationErr  error
	CreateNotificationErr error
	UpdateStatusErr       error
	GetJobErr             error
}

var _ repository.AccountRepo = (*Repo)(nil)
var _ repository.CompanyRepo = (*Repo)(nil)
var _ repository.RecruiterRepo = (*Repo)(nil)
var _ repository.JobRepo = (*Repo)(nil)
var _ repository.ApplicationRepo = (*Repo)(nil)
var _ repository.NotificationRepo = (*Repo)(nil)

func NewRepo() *Repo {
	return &Repo{
		accounts:      map[int64]*models.Account{},
		companies:     map[int64]*models.Company{},
		recruiters:    map[int64]*models.Recruiter{},
		jobs:          map[int64]*models.Job{},
		applications:  map[int64]*models.Application{},
		notifications: map[int64]*models.Notification{},
	}
}

func (m *Repo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Repo) reserve(id int64) {
	if id > m.nextID {
		m.nextID = id
	}
}

// PutAccount stores a with its ID as given, for fixtures that need fixed ids.
func (m *Repo) PutAccount(a models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserve(a.ID)
	a.CreatedAt = stamp(a.CreatedAt)
	m.accounts[a.ID] = &a
}

// PutJob stores j with its ID as given.
func (m *Repo) PutJob(j models.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserve(j.ID)
	j.PostedAt = stamp(j.PostedAt)
	m.jobs[j.ID] = &j
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func (m *Repo) CreateAccount(ctx context.Context, a *models.Account) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateAccountErr != nil {
		return 0, m.CreateAccountErr
	}
	return m.createAccountLocked(a)
}

func (m *Repo) createAccountLocked(a *models.Account) (int64, error) {
	for _, x := range m.accounts {
		if x.Email == a.Email {
			return 0, repository.ErrConflict
		}
	}
	cp := *a
	cp.ID = m.id()
	cp.CreatedAt = stamp(cp.CreatedAt)
	m.accounts[cp.ID] = &cp
	return cp.ID, nil
}

func (m *Repo) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *Repo) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Repo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.PasswordHash = passwordHash
	}
	return nil
}

func (m *Repo) SetAccountActive(ctx context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.Active = active
	}
	return nil
}

func (m *Repo) ListAccounts(ctx context.Context) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Account{}
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Repo) DeleteAccount(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for aid, a := range m.applications {
		if a.UserID == id {
			delete(m.applications, aid)
		}
	}
	for nid, n := range m.notifications {
		if n.UserID == id {
			delete(m.notifications, nid)
		}
	}
	for rid, r := range m.recruiters {
		if r.AccountID == id {
			m.deleteRecruiterLocked(rid)
		}
	}
	delete(m.accounts, id)
	return nil
}

func (m *Repo) GetCompanyByID(ctx context.Context, id int64) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.companies[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *Repo) GetCompanyByName(ctx context.Context, name string) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.companyByNameLocked(name); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *Repo) companyByNameLocked(name string) *models.Company {
	name = strings.TrimSpace(name)
	for _, c := range m.companies {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

func (m *Repo) CreateRecruiterAccount(ctx context.Context, a *models.Account, c *models.Company) (*models.Recruiter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateAccountErr != nil {
		return nil, m.CreateAccountErr
	}

	acct := *a
	acct.Role = models.RoleRecruiter
	accountID, err := m.createAccountLocked(&acct)
	if err != nil {
		return nil, err
	}

	company := m.companyByNameLocked(c.Name)
	if company == nil {
		cp := *c
		cp.Name = strings.TrimSpace(cp.Name)
		cp.ID = m.id()
		m.companies[cp.ID] = &cp
		company = &cp
	}

	rec := &models.Recruiter{ID: m.id(), AccountID: accountID, CompanyID: company.ID, CreatedAt: time.Now().UTC()}
	m.recruiters[rec.ID] = rec
	a.ID = accountID
	a.Role = models.RoleRecruiter
	c.ID = company.ID
	return m.recruiterViewLocked(rec), nil
}

func (m *Repo) recruiterViewLocked(r *models.Recruiter) *models.Recruiter {
	cp := *r
	if a, ok := m.accounts[r.AccountID]; ok {
		cp.FullName = a.FullName
		cp.Email = a.Email
		cp.Active = a.Active
	}
	if c, ok := m.companies[r.CompanyID]; ok {
		cp.CompanyName = c.Name
	}
	return &cp
}

func (m *Repo) GetRecruiterByID(ctx context.Context, id int64) (*models.Recruiter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.recruiters[id]; ok {
		return m.recruiterViewLocked(r), nil
	}
	return nil, nil
}

func (m *Repo) GetRecruiterByAccountID(ctx context.Context, accountID int64) (*models.Recruiter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recruiters {
		if r.AccountID == accountID {
			return m.recruiterViewLocked(r), nil
		}
	}
	return nil, nil
}

func (m *Repo) ListRecruiters(ctx context.Context) ([]models.Recruiter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Recruiter{}
	for _, r := range m.recruiters {
		out = append(out, *m.recruiterViewLocked(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Repo) DeleteRecruiter(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteRecruiterLocked(id)
	return nil
}

func (m *Repo) deleteRecruiterLocked(id int64) {
	for jid, j := range m.jobs {
		if j.RecruiterID != id {
			continue
		}
		for aid, a := range m.applications {
			if a.JobID == jid {
				delete(m.applications, aid)
			}
		}
		delete(m.jobs, jid)
	}
	delete(m.recruiters, id)
}

func (m *Repo) CreateJob(ctx context.Context, j *models.Job) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	cp.ID = m.id()
	cp.PostedAt = stamp(cp.PostedAt)
	m.jobs[cp.ID] = &cp
	return cp.ID, nil
}

func (m *Repo) GetJobByID(ctx context.Context, id int64) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetJobErr != nil {
		return nil, m.GetJobErr
	}
	if j, ok := m.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (m *Repo) UpdateJob(ctx context.Context, j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; ok {
		cp := *j
		m.jobs[j.ID] = &cp
	}
	return nil
}

func (m *Repo) DeleteJob(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for aid, a := range m.applications {
		if a.JobID == id {
			delete(m.applications, aid)
		}
	}
	delete(m.jobs, id)
	return nil
}

func (m *Repo) ListJobsByRecruiter(ctx context.Context, recruiterID int64) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Job{}
	for _, j := range m.jobs {
		if j.RecruiterID == recruiterID {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Repo) SearchJobs(ctx context.Context, f models.JobFilter) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	contains := func(field, want string) bool {
		return strings.Contains(strings.ToLower(field), strings.ToLower(strings.TrimSpace(want)))
	}
	out := []models.Job{}
	for _, j := range m.jobs {
		cp := *j
		if c, ok := m.companies[j.CompanyID]; ok {
			cp.CompanyName = c.Name
		}
		if contains(cp.Title, f.Title) && contains(cp.Location, f.Location) &&
			contains(cp.EmploymentType, f.EmploymentType) && contains(cp.CompanyName, f.Company) {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Offset >= len(out) {
		return []models.Job{}, nil
	}
	out = out[f.Offset:]
	if f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Repo) CreateApplication(ctx context.Context, a *models.Application) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateApplicationErr != nil {
		return 0, m.CreateApplicationErr
	}
	for _, x := range m.applications {
		if x.UserID == a.UserID && x.JobID == a.JobID {
			return 0, repository.ErrConflict
		}
	}
	cp := *a
	cp.ID = m.id()
	cp.AppliedAt = stamp(cp.AppliedAt)
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = cp.AppliedAt
	}
	m.applications[cp.ID] = &cp
	return cp.ID, nil
}

func (m *Repo) viewLocked(a *models.Application) models.ApplicationView {
	v := models.ApplicationView{Application: *a}
	if u, ok := m.accounts[a.UserID]; ok {
		v.Applicant = models.ApplicantSummary{ID: u.ID, FullName: u.FullName, Email: u.Email}
	}
	if j, ok := m.jobs[a.JobID]; ok {
		v.Job = models.JobSummary{ID: j.ID, Title: j.Title, RecruiterID: j.RecruiterID, CompanyID: j.CompanyID, PostedAt: j.PostedAt, ClosingAt: j.ClosingAt}
		if c, ok := m.companies[j.CompanyID]; ok {
			v.Job.CompanyName = c.Name
		}
		if r, ok := m.recruiters[j.RecruiterID]; ok {
			if ra, ok := m.accounts[r.AccountID]; ok {
				v.Job.Recruiter = ra.FullName
			}
		}
	}
	return v
}

func (m *Repo) listLocked(keep func(*models.Application) bool) []models.ApplicationView {
	out := []models.ApplicationView{}
	for _, a := range m.applications {
		if keep(a) {
			out = append(out, m.viewLocked(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AppliedAt.Equal(out[j].AppliedAt) {
			return out[i].AppliedAt.After(out[j].AppliedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *Repo) GetApplicationByID(ctx context.Context, id int64) (*models.ApplicationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.applications[id]; ok {
		v := m.viewLocked(a)
		return &v, nil
	}
	return nil, nil
}

func (m *Repo) GetApplicationByUserAndJob(ctx context.Context, userID, jobID int64) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.applications {
		if a.UserID == userID && a.JobID == jobID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Repo) UpdateApplicationStatus(ctx context.Context, id int64, from, to models.ApplicationStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateStatusErr != nil {
		return m.UpdateStatusErr
	}
	a, ok := m.applications[id]
	if !ok || a.Status != from {
		return repository.ErrStale
	}
	a.Status = to
	a.UpdatedAt = updatedAt
	return nil
}

func (m *Repo) WithdrawApplication(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok || a.Status.Terminal() {
		return repository.ErrStale
	}
	delete(m.applications, id)
	return nil
}

func (m *Repo) ListApplicationsByUser(ctx context.Context, userID int64) ([]models.ApplicationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(func(a *models.Application) bool { return a.UserID == userID }), nil
}

func (m *Repo) ListApplicationsByJob(ctx context.Context, jobID int64) ([]models.ApplicationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(func(a *models.Application) bool { return a.JobID == jobID }), nil
}

func (m *Repo) ListApplicationsByRecruiter(ctx context.Context, recruiterID int64) ([]models.ApplicationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(func(a *models.Application) bool {
		j, ok := m.jobs[a.JobID]
		return ok && j.RecruiterID == recruiterID
	}), nil
}

func (m *Repo) ListAllApplications(ctx context.Context) ([]models.ApplicationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(func(*models.Application) bool { return true }), nil
}

func (m *Repo) CreateNotification(ctx context.Context, n *models.Notification) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateNotificationErr != nil {
		return 0, m.CreateNotificationErr
	}
	cp := *n
	cp.ID = m.id()
	cp.CreatedAt = stamp(cp.CreatedAt)
	m.notifications[cp.ID] = &cp
	return cp.ID, nil
}

func (m *Repo) GetNotificationByID(ctx context.Context, id int64) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, nil
}

func (m *Repo) ListNotificationsByUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Repo) MarkNotificationSeen(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok {
		n.Seen = true
	}
	return nil
}

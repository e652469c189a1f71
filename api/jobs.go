package api

import (
	"net/http"

	"github.com/garnizeh/hirehub/internal/application"
	"github.com/garnizeh/hirehub/internal/credential"
	"github.com/garnizeh/hirehub/internal/job"
	"github.com/garnizeh/hirehub/pkg/models"
)

type JobsHandler struct {
	jobs *job.Service
	apps *application.Service
}

func NewJobsHandler(jobs *job.Service, apps *application.Service) *JobsHandler {
	return &JobsHandler{jobs: jobs, apps: apps}
}

type jobResponse struct {
	Message string      `json:"message"`
	Job     *models.Job `json:"job"`
}

func (h *JobsHandler) Post(w http.ResponseWriter, r *http.Request) {
	rc, ok := mustClaims(r).(credential.RecruiterClaims)
	if !ok || rc.RecruiterID == 0 {
		writeError(w, r, models.ErrForbidden)
		return
	}
	var in job.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	j, err := h.jobs.Post(r.Context(), rc.RecruiterID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jobResponse{Message: "Job posted successfully", Job: j})
}

// Search lists jobs filtered by the job_title, location, employment_type and
// company_name query parameters, paged by page and limit.
func (h *JobsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := job.Query{
		Title:          q.Get("job_title"),
		Location:       q.Get("location"),
		EmploymentType: q.Get("employment_type"),
		Company:        q.Get("company_name"),
	}
	var err error
	if in.Page, err = queryInt(r, "page"); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.jobs.Search(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "jobId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	j, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// Update applies a partial JSON document to a job the caller manages.
func (h *JobsHandler) Update(w http.ResponseWriter, r *http.Request) {
	j, ok := h.owned(w, r)
	if !ok {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.jobs.Update(r.Context(), j.ID, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{Message: "Job updated successfully", Job: updated})
}

func (h *JobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	j, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.jobs.Delete(r.Context(), j.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Job deleted successfully")
}

func (h *JobsHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	j, ok := h.owned(w, r)
	if !ok {
		return
	}
	list, err := h.apps.ListForJob(r.Context(), j.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *JobsHandler) ListByRecruiter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "recruiterId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.jobs.ListByRecruiter(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// owned loads the job in the path and checks the caller may manage it.
func (h *JobsHandler) owned(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	id, err := pathID(r, "jobId")
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	j, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if !canManage(mustClaims(r), j.RecruiterID) {
		writeError(w, r, models.ErrForbidden)
		return nil, false
	}
	return j, true
}

package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/repository"
	"grading-coordinator/internal/infra/metrics"
	"grading-coordinator/internal/usecase"
)

// Server carries the use cases behind the v1 HTTP surface.
type Server struct {
	jobUC      usecase.JobUseCase
	overrideUC usecase.OverrideUseCase
	reassessUC usecase.ReassessUseCase
	feedbackUC usecase.FeedbackUseCase
	reportUC   usecase.ReportUseCase
	refs       repository.ReferenceKeyRepository
	log        *zerolog.Logger
}

func NewServer(
	jobUC usecase.JobUseCase,
	overrideUC usecase.OverrideUseCase,
	reassessUC usecase.ReassessUseCase,
	feedbackUC usecase.FeedbackUseCase,
	reportUC usecase.ReportUseCase,
	refs repository.ReferenceKeyRepository,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{
		jobUC:      jobUC,
		overrideUC: overrideUC,
		reassessUC: reassessUC,
		feedbackUC: feedbackUC,
		reportUC:   reportUC,
		refs:       refs,
		log:        &l,
	}
}

// RegisterAPIV1 mounts all v1 routes on the router with absolute paths, so
// callers mount it at root.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.createJob)
			r.Get("/", s.listJobs)
			r.Route("/{jobID}", func(r chi.Router) {
				r.Get("/", s.getJob)
				r.Delete("/", s.deleteJob)
				r.Post("/process", s.beginProcessing)
				r.Post("/assessment", s.recordAssessment)
				r.Post("/overrides", s.applyOverrides)
				r.Post("/reassess", s.reassess)
				r.Post("/feedback", s.synthesizeFeedback)
				r.Post("/report", s.generateReport)
				r.Get("/report", s.downloadReport)
			})
		})
		r.Route("/references", func(r chi.Router) {
			r.Post("/", s.createReference)
			r.Get("/", s.listReferences)
			r.Get("/{refID}", s.getReference)
		})
	})
}

// ---------------- DTOs ----------------

type JobView struct {
	JobID            string               `json:"job_id"`
	Version          int64                `json:"version"`
	State            string               `json:"state"`
	StudentName      string               `json:"student_name"`
	StudentID        string               `json:"student_id,omitempty"`
	ExamName         string               `json:"exam_name"`
	Subject          string               `json:"subject"`
	ReferenceID      string               `json:"reference_id,omitempty"`
	TotalMarks       float64              `json:"total_marks"`
	MarksObtained    float64              `json:"marks_obtained"`
	Percentage       float64              `json:"percentage"`
	Grade            string               `json:"grade"`
	Answers          []model.AnswerRecord `json:"answers,omitempty"`
	Insights         *model.Insights      `json:"insights,omitempty"`
	Report           *model.ReportHandle  `json:"report,omitempty"`
	ReviewerName     string               `json:"reviewer_name,omitempty"`
	ReviewerComments string               `json:"reviewer_comments,omitempty"`
	LastError        string               `json:"last_error,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

func toJobView(j *model.Job) JobView {
	return JobView{
		JobID:            j.JobID,
		Version:          j.Version,
		State:            string(j.State),
		StudentName:      j.StudentName,
		StudentID:        j.StudentID,
		ExamName:         j.ExamName,
		Subject:          j.Subject,
		ReferenceID:      j.ReferenceID,
		TotalMarks:       j.TotalMarks,
		MarksObtained:    j.MarksObtained,
		Percentage:       j.Percentage,
		Grade:            j.Grade,
		Answers:          j.Answers,
		Insights:         j.Insights,
		Report:           j.Report,
		ReviewerName:     j.ReviewerName,
		ReviewerComments: j.ReviewerComments,
		LastError:        j.LastError,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ---------------- handlers ----------------

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	in, err := decodeCreateJob(r)
	if err != nil {
		s.fail(w, "create", err)
		return
	}
	job, err := s.jobUC.Create(r.Context(), in)
	if err != nil {
		s.fail(w, "create", err)
		return
	}
	metrics.IncJobOp("create", "ok")
	writeJSON(w, http.StatusCreated, toJobView(job))
}

// decodeCreateJob accepts either a multipart upload carrying the answer
// sheet or a JSON body pointing at an already-stored artifact.
func decodeCreateJob(r *http.Request) (usecase.CreateJobInput, error) {
	var in usecase.CreateJobInput

	ct := r.Header.Get("Content-Type")
	if len(ct) >= 19 && ct[:19] == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return in, domain.ErrInvalidArgument
		}
		in.StudentName = r.FormValue("student_name")
		in.StudentID = r.FormValue("student_id")
		in.ExamName = r.FormValue("exam_name")
		in.Subject = r.FormValue("subject")
		in.ReferenceID = r.FormValue("reference_id")
		if v := r.FormValue("total_marks"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return in, domain.ErrInvalidArgument
			}
			in.TotalMarks = f
		}
		file, header, err := r.FormFile("document")
		if err != nil {
			return in, domain.ErrInvalidArgument
		}
		in.Document = file
		in.Size = header.Size
		in.Filename = header.Filename
		in.ContentType = header.Header.Get("Content-Type")
		return in, nil
	}

	var body struct {
		StudentName string  `json:"student_name"`
		StudentID   string  `json:"student_id"`
		ExamName    string  `json:"exam_name"`
		Subject     string  `json:"subject"`
		TotalMarks  float64 `json:"total_marks"`
		ReferenceID string  `json:"reference_id"`
		SourceKey   string  `json:"source_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return in, domain.ErrInvalidArgument
	}
	in.StudentName = body.StudentName
	in.StudentID = body.StudentID
	in.ExamName = body.ExamName
	in.Subject = body.Subject
	in.TotalMarks = body.TotalMarks
	in.ReferenceID = body.ReferenceID
	in.SourceKey = body.SourceKey
	return in, nil
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	state := model.JobState(r.URL.Query().Get("state"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	jobs, err := s.jobUC.List(r.Context(), state, limit)
	if err != nil {
		s.fail(w, "list", err)
		return
	}
	items := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, toJobView(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobUC.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.fail(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobUC.Delete(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		s.fail(w, "delete", err)
		return
	}
	metrics.IncJobOp("delete", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) beginProcessing(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobUC.BeginProcessing(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.fail(w, "process", err)
		return
	}
	metrics.IncJobOp("process", "ok")
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) recordAssessment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers []model.AnswerRecord `json:"answers"`
		Error   string               `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, "assessment", domain.ErrInvalidArgument)
		return
	}

	jobID := chi.URLParam(r, "jobID")
	var (
		job *model.Job
		err error
	)
	if body.Error != "" {
		job, err = s.jobUC.RecordAssessmentError(r.Context(), jobID, errors.New(body.Error))
	} else {
		job, err = s.jobUC.RecordAssessment(r.Context(), jobID, body.Answers)
	}
	if err != nil {
		s.fail(w, "assessment", err)
		return
	}
	metrics.IncJobOp("assessment", "ok")
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) applyOverrides(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ExpectedVersion  int64  `json:"expected_version"`
		ReviewerName     string `json:"reviewer_name"`
		ReviewerComments string `json:"reviewer_comments"`
		Overrides        []struct {
			QuestionNumber int      `json:"question_number"`
			Marks          *float64 `json:"marks"`
			Explanation    string   `json:"explanation"`
			ReviewerNotes  string   `json:"reviewer_notes"`
		} `json:"overrides"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, "override", domain.ErrInvalidArgument)
		return
	}

	batch := usecase.OverrideBatch{
		ReviewerName:     body.ReviewerName,
		ReviewerComments: body.ReviewerComments,
	}
	for _, o := range body.Overrides {
		batch.Entries = append(batch.Entries, usecase.OverrideEntry{
			QuestionNumber: o.QuestionNumber,
			Marks:          o.Marks,
			Explanation:    o.Explanation,
			ReviewerNotes:  o.ReviewerNotes,
		})
	}

	job, err := s.overrideUC.Apply(r.Context(), chi.URLParam(r, "jobID"), body.ExpectedVersion, batch)
	if err != nil {
		s.fail(w, "override", err)
		return
	}
	metrics.IncJobOp("override", "ok")
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) reassess(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReferenceID string `json:"reference_id"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.fail(w, "reassess", domain.ErrInvalidArgument)
			return
		}
	}
	job, err := s.reassessUC.Reassess(r.Context(), chi.URLParam(r, "jobID"), body.ReferenceID)
	if err != nil {
		s.fail(w, "reassess", err)
		return
	}
	metrics.IncJobOp("reassess", "ok")
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) synthesizeFeedback(w http.ResponseWriter, r *http.Request) {
	job, err := s.feedbackUC.Synthesize(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.fail(w, "feedback", err)
		return
	}
	metrics.IncJobOp("feedback", "ok")
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) generateReport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = usecase.DefaultReportFormat
	}
	job, err := s.reportUC.Generate(r.Context(), chi.URLParam(r, "jobID"), format)
	if err != nil {
		s.fail(w, "report", err)
		return
	}
	metrics.IncJobOp("report", "ok")
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) downloadReport(w http.ResponseWriter, r *http.Request) {
	url, err := s.reportUC.Download(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.fail(w, "download", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// ---------------- reference handlers ----------------

type referenceBody struct {
	ReferenceID string                  `json:"reference_id"`
	TeacherName string                  `json:"teacher_name"`
	TeacherID   string                  `json:"teacher_id"`
	ExamName    string                  `json:"exam_name"`
	Subject     string                  `json:"subject"`
	TotalMarks  float64                 `json:"total_marks"`
	Answers     []model.ReferenceAnswer `json:"answers"`
	Active      bool                    `json:"active"`
}

func (s *Server) createReference(w http.ResponseWriter, r *http.Request) {
	var body referenceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, "reference_create", domain.ErrInvalidArgument)
		return
	}
	if body.ExamName == "" || len(body.Answers) == 0 {
		s.fail(w, "reference_create", domain.ErrInvalidArgument)
		return
	}
	ref := &model.ReferenceKey{
		ReferenceID: body.ReferenceID,
		TeacherName: body.TeacherName,
		TeacherID:   body.TeacherID,
		ExamName:    body.ExamName,
		Subject:     body.Subject,
		TotalMarks:  body.TotalMarks,
		Answers:     body.Answers,
		Active:      true,
	}
	if err := s.refs.Save(r.Context(), nil, ref); err != nil {
		s.fail(w, "reference_create", err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func (s *Server) getReference(w http.ResponseWriter, r *http.Request) {
	ref, err := s.refs.FindByID(r.Context(), chi.URLParam(r, "refID"))
	if err != nil {
		s.fail(w, "reference_get", err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) listReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := s.refs.ListByTeacher(r.Context(), r.URL.Query().Get("teacher_id"))
	if err != nil {
		s.fail(w, "reference_list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": refs})
}

// ---------------- plumbing ----------------

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusConflict {
		metrics.IncConflict()
	}
	metrics.IncJobOp(op, "error")
	if status >= 500 {
		s.log.Error().Err(err).Str("op", op).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrReportNotReady):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownQuestion), errors.Is(err, domain.ErrMarksOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAssessmentUnavailable), errors.Is(err, domain.ErrFeedbackUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package model

import (
	"math"
	"time"
)

type JobState string

const (
	JobStateUploaded          JobState = "uploaded"
	JobStateProcessing        JobState = "processing"
	JobStateAssessed          JobState = "assessed"
	JobStateFeedbackGenerated JobState = "feedback_generated"
	JobStateReviewed          JobState = "reviewed"
	JobStateCompleted         JobState = "completed"
	JobStateFailed            JobState = "failed"
	JobStateDeleted           JobState = "deleted"
)

// Operation is a client-visible mutating request against a job.
type Operation string

const (
	OpBeginProcessing    Operation = "begin_processing"
	OpAssessmentComplete Operation = "assessment_complete"
	OpAssessmentError    Operation = "assessment_error"
	OpApplyOverride      Operation = "apply_override"
	OpReassess           Operation = "reassess"
	OpSynthesizeFeedback Operation = "synthesize_feedback"
	OpGenerateReport     Operation = "generate_report"
	OpDelete             Operation = "delete"
)

// AnswerRecord is one assessed question. MarksObtained must stay within
// [0, MaxMarks] on every write path; question numbers are unique per job.
type AnswerRecord struct {
	QuestionNumber int      `json:"question_number"`
	QuestionText   string   `json:"question_text,omitempty"`
	StudentAnswer  string   `json:"student_answer,omitempty"`
	MarksObtained  float64  `json:"marks_obtained"`
	MaxMarks       float64  `json:"max_marks"`
	Correct        bool     `json:"is_correct"`
	Explanation    string   `json:"explanation,omitempty"`
	Suggestions    []string `json:"suggestions,omitempty"`
	ReviewerNotes  string   `json:"reviewer_notes,omitempty"`
	ReviewedBy     string   `json:"reviewed_by,omitempty"`
}

// Insights is the narrative feedback produced by the synthesis service.
type Insights struct {
	OverallFeedback string   `json:"overall_feedback"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"areas_for_improvement"`
	Recommendations []string `json:"recommendations"`
}

// ReportHandle points at a rendered report in the object store. It is valid
// only while its Version equals the job's current Version.
type ReportHandle struct {
	ObjectKey  string    `json:"object_key"`
	Format     string    `json:"format"` // "xlsx" | "json"
	Version    int64     `json:"version"`
	RenderedAt time.Time `json:"rendered_at"`
}

// Job is one submitted answer sheet's end-to-end processing record.
// MarksObtained, Percentage and Grade are derived from Answers and are never
// set independently; Recompute is the only writer.
type Job struct {
	JobID       string
	Version     int64
	State       JobState
	StudentName string
	StudentID   string
	ExamName    string
	Subject     string
	ReferenceID string // optional link to a ReferenceKey
	SourceKey   string // object-store key of the uploaded answer sheet

	Answers       []AnswerRecord
	TotalMarks    float64
	MarksObtained float64
	Percentage    float64
	Grade         string

	Insights *Insights
	Report   *ReportHandle

	ReviewerName     string
	ReviewerComments string

	LastError string
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewJob(id, studentName, studentID, examName, subject, referenceID, sourceKey string, totalMarks float64) *Job {
	now := time.Now()
	return &Job{
		JobID:       id,
		Version:     1,
		State:       JobStateUploaded,
		StudentName: studentName,
		StudentID:   studentID,
		ExamName:    examName,
		Subject:     subject,
		ReferenceID: referenceID,
		SourceKey:   sourceKey,
		TotalMarks:  totalMarks,
		Grade:       "N/A",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Recompute rederives the aggregate fields from Answers. It must be called in
// the same commit as any change to Answers.
func (j *Job) Recompute() {
	var obtained float64
	for _, a := range j.Answers {
		obtained += a.MarksObtained
	}
	j.MarksObtained = round2(obtained)
	if j.TotalMarks > 0 {
		j.Percentage = round2(100 * j.MarksObtained / j.TotalMarks)
	} else {
		j.Percentage = 0
	}
	j.Grade = GradeFromPercentage(j.Percentage)
}

// Answer returns the record for a question number, or nil.
func (j *Job) Answer(questionNumber int) *AnswerRecord {
	for i := range j.Answers {
		if j.Answers[i].QuestionNumber == questionNumber {
			return &j.Answers[i]
		}
	}
	return nil
}

// InvalidateDerived clears cached outputs that are stale after a mutation
// that changed the answer set.
func (j *Job) InvalidateDerived() {
	j.Insights = nil
	j.Report = nil
}

// ReportCurrent reports whether the cached report matches the job's version.
func (j *Job) ReportCurrent() bool {
	return j.Report != nil && j.Report.Version == j.Version
}

// GradeFromPercentage maps a percentage score to a letter grade.
func GradeFromPercentage(pct float64) string {
	switch {
	case pct >= 90:
		return "A"
	case pct >= 80:
		return "B"
	case pct >= 70:
		return "C"
	case pct >= 60:
		return "D"
	default:
		return "F"
	}
}

// CorrectThreshold: an answer counts as correct at half marks or above.
func MarksAreCorrect(obtained, max float64) bool {
	return max > 0 && obtained >= max*0.5
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package model

import "time"

// ReferenceAnswer is one canonical answer from a teacher's mark scheme.
type ReferenceAnswer struct {
	QuestionNumber int     `json:"question_number"`
	AnswerText     string  `json:"answer_text"`
	MaxMarks       float64 `json:"max_marks"`
}

// ReferenceKey is a teacher-provided canonical answer set and mark scheme.
// Jobs link to it by ID only; it is owned by the reference service side.
type ReferenceKey struct {
	ReferenceID string
	TeacherName string
	TeacherID   string
	ExamName    string
	Subject     string
	TotalMarks  float64
	Answers     []ReferenceAnswer
	Active      bool
	CreatedAt   time.Time
}

// AnswerKey flattens the reference answers into a question -> text map used
// when invoking the assessment service.
func (r *ReferenceKey) AnswerKey() map[int]string {
	out := make(map[int]string, len(r.Answers))
	for _, a := range r.Answers {
		out[a.QuestionNumber] = a.AnswerText
	}
	return out
}

// MaxMarksFor returns the scheme's max marks for a question, if present.
func (r *ReferenceKey) MaxMarksFor(questionNumber int) (float64, bool) {
	for _, a := range r.Answers {
		if a.QuestionNumber == questionNumber {
			return a.MaxMarks, true
		}
	}
	return 0, false
}

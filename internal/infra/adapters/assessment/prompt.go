package assessment

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
)

// gradedAnswer is the JSON shape both providers are instructed to return.
type gradedAnswer struct {
	QuestionNumber int      `json:"question_number"`
	QuestionText   string   `json:"question_text"`
	StudentAnswer  string   `json:"student_answer"`
	MarksObtained  float64  `json:"marks_obtained"`
	MaxMarks       float64  `json:"max_marks"`
	Explanation    string   `json:"explanation"`
	Suggestions    []string `json:"suggestions"`
}

type gradedSheet struct {
	Answers []gradedAnswer `json:"answers"`
}

// buildPrompt renders the grading instruction for one request. The answer
// key, when present, pins per-question expectations; without it the model is
// told to grade on subject knowledge alone.
func buildPrompt(req adapter.AssessmentRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an exam grader for the subject %q (exam: %q).\n", req.Subject, req.ExamName)
	fmt.Fprintf(&b, "The student's answer sheet is stored at %q and has been provided to you.\n", req.SourceKey)
	fmt.Fprintf(&b, "Total marks for the paper: %.2f.\n\n", req.TotalMarks)

	if len(req.AnswerKey) > 0 {
		b.WriteString("Grade strictly against this answer key:\n")
		nums := make([]int, 0, len(req.AnswerKey))
		for n := range req.AnswerKey {
			nums = append(nums, n)
		}
		sort.Ints(nums)
		for _, n := range nums {
			fmt.Fprintf(&b, "Q%d: %s\n", n, req.AnswerKey[n])
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No answer key is available; grade on subject knowledge.\n\n")
	}

	b.WriteString("Extract every question and answer, assign marks, and respond with JSON only, matching:\n")
	b.WriteString(`{"answers":[{"question_number":1,"question_text":"...","student_answer":"...","marks_obtained":0,"max_marks":0,"explanation":"...","suggestions":["..."]}]}`)
	b.WriteString("\nDo not wrap the JSON in markdown fences.")
	return b.String()
}

// parseSheet decodes a provider reply into answer records. Fenced replies are
// tolerated since models add them despite instructions.
func parseSheet(raw string) ([]model.AnswerRecord, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var sheet gradedSheet
	if err := json.Unmarshal([]byte(raw), &sheet); err != nil {
		return nil, fmt.Errorf("decode graded sheet: %w", err)
	}
	if len(sheet.Answers) == 0 {
		return nil, fmt.Errorf("graded sheet has no answers")
	}

	out := make([]model.AnswerRecord, 0, len(sheet.Answers))
	for _, a := range sheet.Answers {
		out = append(out, model.AnswerRecord{
			QuestionNumber: a.QuestionNumber,
			QuestionText:   a.QuestionText,
			StudentAnswer:  a.StudentAnswer,
			MarksObtained:  a.MarksObtained,
			MaxMarks:       a.MaxMarks,
			Correct:        model.MarksAreCorrect(a.MarksObtained, a.MaxMarks),
			Explanation:    a.Explanation,
			Suggestions:    a.Suggestions,
		})
	}
	return out, nil
}

package usecase

import (
	"fmt"
	"sort"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
)

// normalizeAnswerSet validates a full answer set coming from the assessment
// service and returns it sorted by question number with the Correct flag
// rederived. The whole set is rejected on the first violation.
func normalizeAnswerSet(answers []model.AnswerRecord) ([]model.AnswerRecord, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: empty answer set", domain.ErrInvalidArgument)
	}
	seen := make(map[int]bool, len(answers))
	out := make([]model.AnswerRecord, len(answers))
	copy(out, answers)
	for i := range out {
		a := &out[i]
		if a.QuestionNumber <= 0 {
			return nil, fmt.Errorf("%w: question number %d", domain.ErrInvalidArgument, a.QuestionNumber)
		}
		if seen[a.QuestionNumber] {
			return nil, fmt.Errorf("%w: duplicate question %d", domain.ErrInvalidArgument, a.QuestionNumber)
		}
		seen[a.QuestionNumber] = true
		if a.MaxMarks <= 0 {
			return nil, fmt.Errorf("%w: question %d has max_marks %v", domain.ErrInvalidArgument, a.QuestionNumber, a.MaxMarks)
		}
		if a.MarksObtained < 0 || a.MarksObtained > a.MaxMarks {
			return nil, fmt.Errorf("%w: question %d scored %v of %v", domain.ErrMarksOutOfRange, a.QuestionNumber, a.MarksObtained, a.MaxMarks)
		}
		a.Correct = model.MarksAreCorrect(a.MarksObtained, a.MaxMarks)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionNumber < out[j].QuestionNumber })
	return out, nil
}

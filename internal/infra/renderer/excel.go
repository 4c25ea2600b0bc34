package renderer

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"grading-coordinator/internal/domain/model"
)

func renderXLSX(job *model.Job) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Score Report"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	// Summary block
	summary := [][2]any{
		{"Student", job.StudentName},
		{"Student ID", job.StudentID},
		{"Exam", job.ExamName},
		{"Subject", job.Subject},
		{"Marks Obtained", fmt.Sprintf("%.2f / %.2f", job.MarksObtained, job.TotalMarks)},
		{"Percentage", fmt.Sprintf("%.2f%%", job.Percentage)},
		{"Grade", job.Grade},
	}
	row := 1
	for _, kv := range summary {
		write(1, row, kv[0])
		write(2, row, kv[1])
		row++
	}
	if job.ReviewerName != "" {
		write(1, row, "Reviewed By")
		write(2, row, job.ReviewerName)
		row++
	}
	if job.ReviewerComments != "" {
		write(1, row, "Reviewer Comments")
		write(2, row, job.ReviewerComments)
		row++
	}
	row++

	// Per-question table
	headers := []string{"Q#", "Question", "Student Answer", "Marks", "Max Marks", "Correct", "Explanation", "Suggestions"}
	for i, h := range headers {
		write(i+1, row, h)
	}
	row++
	for _, a := range job.Answers {
		write(1, row, a.QuestionNumber)
		write(2, row, a.QuestionText)
		write(3, row, a.StudentAnswer)
		write(4, row, a.MarksObtained)
		write(5, row, a.MaxMarks)
		write(6, row, a.Correct)
		write(7, row, a.Explanation)
		write(8, row, strings.Join(a.Suggestions, "; "))
		row++
	}
	row++

	if job.Insights != nil {
		write(1, row, "Overall Feedback")
		write(2, row, job.Insights.OverallFeedback)
		row++
		write(1, row, "Strengths")
		write(2, row, strings.Join(job.Insights.Strengths, "; "))
		row++
		write(1, row, "Areas For Improvement")
		write(2, row, strings.Join(job.Insights.Improvements, "; "))
		row++
		write(1, row, "Recommendations")
		write(2, row, strings.Join(job.Insights.Recommendations, "; "))
	}

	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "C", 40)
	_ = f.SetColWidth(sheet, "D", "F", 12)
	_ = f.SetColWidth(sheet, "G", "H", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

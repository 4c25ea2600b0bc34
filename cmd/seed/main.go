package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"grading-coordinator/internal/config"
	"grading-coordinator/internal/domain/model"
	pg "grading-coordinator/internal/infra/db/postgres"
)

// Seeds a sample reference key so a fresh environment can grade against
// something without going through the reference API first.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	refs := pg.NewReferenceRepo(pool)

	const refID = "seed-math-midterm"
	if existing, err := refs.FindByID(ctx, refID); err == nil {
		fmt.Printf("reference %s already present (%s). No changes.\n", existing.ReferenceID, existing.ExamName)
		return
	}

	ref := &model.ReferenceKey{
		ReferenceID: refID,
		TeacherName: "Seed Teacher",
		TeacherID:   "seed-teacher",
		ExamName:    "Mathematics Midterm",
		Subject:     "Mathematics",
		TotalMarks:  100,
		Answers: []model.ReferenceAnswer{
			{QuestionNumber: 1, AnswerText: "x = 4", MaxMarks: 25},
			{QuestionNumber: 2, AnswerText: "The derivative is 2x + 3", MaxMarks: 25},
			{QuestionNumber: 3, AnswerText: "The area is 12 square units", MaxMarks: 25},
			{QuestionNumber: 4, AnswerText: "The probability is 1/6", MaxMarks: 25},
		},
		Active: true,
	}
	if err := refs.Save(ctx, nil, ref); err != nil {
		log.Fatalf("seed reference: %v", err)
	}
	fmt.Printf("seeded reference %s (%s, %d questions)\n", ref.ReferenceID, ref.ExamName, len(ref.Answers))
}

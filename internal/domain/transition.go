package domain

import "grading-coordinator/internal/domain/model"

// transitions is the single source of truth for which operations are legal in
// which states. Orchestrators consult it before any external call so a doomed
// request never reaches a remote service.
var transitions = map[model.Operation]struct {
	from map[model.JobState]bool
	to   model.JobState
}{
	model.OpBeginProcessing: {
		from: states(model.JobStateUploaded),
		to:   model.JobStateProcessing,
	},
	model.OpAssessmentComplete: {
		from: states(model.JobStateProcessing),
		to:   model.JobStateAssessed,
	},
	model.OpAssessmentError: {
		from: states(model.JobStateProcessing),
		to:   model.JobStateFailed,
	},
	model.OpApplyOverride: {
		from: states(model.JobStateAssessed, model.JobStateFeedbackGenerated, model.JobStateReviewed, model.JobStateCompleted),
		to:   model.JobStateReviewed,
	},
	model.OpReassess: {
		from: states(model.JobStateAssessed, model.JobStateReviewed, model.JobStateFeedbackGenerated, model.JobStateCompleted),
		to:   model.JobStateAssessed,
	},
	model.OpSynthesizeFeedback: {
		from: states(model.JobStateAssessed, model.JobStateReviewed),
		to:   model.JobStateFeedbackGenerated,
	},
	model.OpGenerateReport: {
		from: states(model.JobStateFeedbackGenerated, model.JobStateReviewed, model.JobStateCompleted),
		to:   model.JobStateCompleted,
	},
}

// NextState validates op against the current state and returns the resulting
// state. It is a pure function; the job itself is never touched.
func NextState(current model.JobState, op model.Operation) (model.JobState, error) {
	if current == model.JobStateDeleted {
		return "", &InvalidTransitionError{State: current, Op: op}
	}
	if op == model.OpDelete {
		// delete is terminal and legal from any non-deleted state
		return model.JobStateDeleted, nil
	}
	t, ok := transitions[op]
	if !ok || !t.from[current] {
		return "", &InvalidTransitionError{State: current, Op: op}
	}
	return t.to, nil
}

func states(ss ...model.JobState) map[model.JobState]bool {
	m := make(map[model.JobState]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

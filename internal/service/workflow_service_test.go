package service

import (
	"course_eval_backend/internal/model"
	"testing"
)

func TestTransitionAllowed(t *testing.T) {
	allowed := []struct{ from, to model.EvaluationState }{
		{model.StateNew, model.StatePrepared},
		{model.StatePrepared, model.StateApproved},
		{model.StateNew, model.StateApproved},
		{model.StatePrepared, model.StateNew},
		{model.StateApproved, model.StateInEvaluation},
		{model.StateInEvaluation, model.StateEvaluated},
		{model.StateEvaluated, model.StateReviewed},
		{model.StateReviewed, model.StatePublished},
		{model.StatePublished, model.StateReviewed}, // 撤回发布
	}
	for _, c := range allowed {
		if !TransitionAllowed(c.from, c.to) {
			t.Fatalf("transition %s→%s must be allowed", c.from, c.to)
		}
	}

	forbidden := []struct{ from, to model.EvaluationState }{
		{model.StateNew, model.StatePublished},
		{model.StateNew, model.StateInEvaluation},
		{model.StateApproved, model.StateNew},
		{model.StateApproved, model.StatePublished},
		{model.StateInEvaluation, model.StatePublished},
		{model.StateEvaluated, model.StatePublished},
		{model.StatePublished, model.StateNew},
		{model.StatePublished, model.StatePublished},
		{model.StateReviewed, model.StateEvaluated},
	}
	for _, c := range forbidden {
		if TransitionAllowed(c.from, c.to) {
			t.Fatalf("transition %s→%s must be rejected", c.from, c.to)
		}
	}
}

func TestWorkflowWarnings(t *testing.T) {
	s := NewWorkflowService(nil, nil, NewGradeService(testConfig()))

	running := &model.Evaluation{
		State:            model.StateInEvaluation,
		ParticipantCount: 10,
		VoterCount:       1,
	}
	warnings := s.Warnings(running)
	if len(warnings) != 2 {
		t.Fatalf("got %d warnings, want participation + preview: %v", len(warnings), warnings)
	}

	finished := &model.Evaluation{
		State:            model.StatePublished,
		ParticipantCount: 10,
		VoterCount:       5,
	}
	if warnings := s.Warnings(finished); len(warnings) != 0 {
		t.Fatalf("published evaluation must have no warnings, got %v", warnings)
	}
}

package service

import (
	"context"
	"course_eval_backend/internal/model"
	"course_eval_backend/internal/repository"
	"course_eval_backend/internal/util"
	"course_eval_backend/pkg/logger"

	"go.uber.org/zap"
)

// StateChangeHook 状态转换完成后的通知。缓存等副作用通过订阅
// 该通知实现，不嵌在状态机内部。
type StateChangeHook func(ctx context.Context, evaluation *model.Evaluation, from, to model.EvaluationState)

// allowedTransitions 目标状态 → 允许的来源状态
var allowedTransitions = map[model.EvaluationState][]model.EvaluationState{
	model.StatePrepared:     {model.StateNew},
	model.StateApproved:     {model.StateNew, model.StatePrepared},
	model.StateNew:          {model.StatePrepared},
	model.StateInEvaluation: {model.StateApproved},
	model.StateEvaluated:    {model.StateInEvaluation},
	model.StateReviewed:     {model.StateEvaluated, model.StatePublished},
	model.StatePublished:    {model.StateReviewed},
}

// TransitionAllowed 状态机的转换规则，纯函数
func TransitionAllowed(from, to model.EvaluationState) bool {
	for _, source := range allowedTransitions[to] {
		if from == source {
			return true
		}
	}
	return false
}

// WorkflowService 驱动评教生命周期状态机。每个转换显式校验
// 来源状态，非法转换返回 ErrInvalidStateTransition。
type WorkflowService struct {
	EvaluationRepo *repository.EvaluationRepository
	AnswerRepo     *repository.AnswerRepository
	Grades         *GradeService

	hooks []StateChangeHook
}

func NewWorkflowService(
	evaluationRepo *repository.EvaluationRepository,
	answerRepo *repository.AnswerRepository,
	grades *GradeService,
) *WorkflowService {
	return &WorkflowService{
		EvaluationRepo: evaluationRepo,
		AnswerRepo:     answerRepo,
		Grades:         grades,
	}
}

func (s *WorkflowService) RegisterHook(hook StateChangeHook) {
	s.hooks = append(s.hooks, hook)
}

func (s *WorkflowService) transition(ctx context.Context, evaluationID uint, target model.EvaluationState) (*model.Evaluation, error) {
	evaluation, err := s.EvaluationRepo.FindByID(evaluationID)
	if err != nil {
		return nil, err
	}

	if !TransitionAllowed(evaluation.State, target) {
		return nil, util.ErrInvalidStateTransition
	}

	from := evaluation.State
	if err := s.EvaluationRepo.UpdateState(evaluation.ID, target); err != nil {
		return nil, err
	}
	evaluation.State = target

	logger.Log.Info("evaluation state transition",
		zap.Uint("evaluationId", evaluation.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)))

	for _, hook := range s.hooks {
		hook(ctx, evaluation, from, target)
	}

	return evaluation, nil
}

func (s *WorkflowService) Prepare(ctx context.Context, evaluationID uint) (*model.Evaluation, error) {
	return s.transition(ctx, evaluationID, model.StatePrepared)
}

func (s *WorkflowService) Approve(ctx context.Context, evaluationID uint) (*model.Evaluation, error) {
	return s.transition(ctx, evaluationID, model.StateApproved)
}

func (s *WorkflowService) RevertToNew(ctx context.Context, evaluationID uint) (*model.Evaluation, error) {
	return s.transition(ctx, evaluationID, model.StateNew)
}

func (s *WorkflowService) BeginEvaluation(ctx context.Context, evaluationID uint) (*model.Evaluation, error) {
	return s.transition(ctx, evaluationID, model.StateInEvaluation)
}

func (s *WorkflowService) EndEvaluation(ctx context.Context, evaluationID uint) (*model.Evaluation, error) {
	return s.transition(ctx, evaluationID, model.StateEvaluated)
}

// FinishReview 前置条件：该评教不存在未审核的文本答案
func (s *WorkflowService) FinishReview(ctx context.Context, evaluationID uint) (*model.Evaluation, error) {
	open, err := s.AnswerRepo.CountOpenTextAnswers(evaluationID)
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, util.ErrOpenTextAnswers
	}
	return s.transition(ctx, evaluationID, model.StateReviewed)
}

func (s *WorkflowService) Publish(ctx context.Context, evaluationID uint) (*model.Evaluation, error) {
	return s.transition(ctx, evaluationID, model.StatePublished)
}

// Revoke 撤回发布，评教回到 reviewed
func (s *WorkflowService) Revoke(ctx context.Context, evaluationID uint) (*model.Evaluation, error) {
	evaluation, err := s.EvaluationRepo.FindByID(evaluationID)
	if err != nil {
		return nil, err
	}
	if evaluation.State != model.StatePublished {
		return nil, util.ErrInvalidStateTransition
	}
	return s.transition(ctx, evaluationID, model.StateReviewed)
}

// Warnings 工作流页面的警示信息
func (s *WorkflowService) Warnings(evaluation *model.Evaluation) []string {
	var warnings []string
	if evaluation.StillRunning() && !s.Grades.CanPublishRatingResults(evaluation) {
		warnings = append(warnings, "not enough participants to publish rating results")
	}
	if evaluation.StillRunning() {
		warnings = append(warnings, "evaluation results are a preview, the evaluation is not finished")
	}
	return warnings
}

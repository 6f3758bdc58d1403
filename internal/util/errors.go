package util

import "errors"

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailRegistered        = errors.New("该邮箱已被注册")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrSemesterNotFound       = errors.New("semester not found")
	ErrEvaluationNotFound     = errors.New("evaluation not found")
	ErrTextAnswerNotFound     = errors.New("text answer not found")
	ErrGradeDocumentNotFound  = errors.New("grade document not found")
	ErrInvalidStateTransition = errors.New("invalid evaluation state transition")
	ErrOpenTextAnswers        = errors.New("evaluation still has unreviewed text answers")
	ErrEvaluationNotGraded    = errors.New("evaluation does not receive grade documents")
	ErrCacheInconsistent      = errors.New("results cache entry missing for published evaluation")
)

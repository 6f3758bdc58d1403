package controller

import (
	"course_eval_backend/internal/model"
	"course_eval_backend/internal/repository"
	"course_eval_backend/internal/service"
	"course_eval_backend/internal/util"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type StaffController struct {
	WorkflowService *service.WorkflowService
	CacheService    *service.ResultsCacheService
	SemesterRepo    *repository.SemesterRepository
	EvaluationRepo  *repository.EvaluationRepository
	AnswerRepo      *repository.AnswerRepository
}

func NewStaffController(
	workflowService *service.WorkflowService,
	cacheService *service.ResultsCacheService,
	semesterRepo *repository.SemesterRepository,
	evaluationRepo *repository.EvaluationRepository,
	answerRepo *repository.AnswerRepository,
) *StaffController {
	return &StaffController{
		WorkflowService: workflowService,
		CacheService:    cacheService,
		SemesterRepo:    semesterRepo,
		EvaluationRepo:  evaluationRepo,
		AnswerRepo:      answerRepo,
	}
}

// CreateSemesterRequest 新建学期
// swagger:model CreateSemesterRequest
type CreateSemesterRequest struct {
	NameDe string `json:"nameDe" binding:"required"`
	NameEn string `json:"nameEn" binding:"required"`
}

// CreateSemester godoc
// @Summary 新建学期
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateSemesterRequest true "学期信息"
// @Success 201 {object} util.Response{data=model.Semester}
// @Router /api/staff/semesters [post]
func (c *StaffController) CreateSemester(ctx *gin.Context) {
	var req CreateSemesterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	semester := &model.Semester{NameDe: req.NameDe, NameEn: req.NameEn}
	if err := c.SemesterRepo.Create(semester); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, semester)
}

// CreateEvaluationRequest 新建评教
// swagger:model CreateEvaluationRequest
type CreateEvaluationRequest struct {
	SemesterID           uint      `json:"semesterId" binding:"required"`
	NameDe               string    `json:"nameDe" binding:"required"`
	NameEn               string    `json:"nameEn" binding:"required"`
	ParticipantCount     int       `json:"participantCount"`
	VoteStartDate        time.Time `json:"voteStartDate" binding:"required"`
	VoteEndDate          time.Time `json:"voteEndDate" binding:"required"`
	IsSingleResult       bool      `json:"isSingleResult"`
	GetsNoGradeDocuments bool      `json:"getsNoGradeDocuments"`
}

// CreateEvaluation godoc
// @Summary 新建评教
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEvaluationRequest true "评教信息"
// @Success 201 {object} util.Response{data=model.Evaluation}
// @Router /api/staff/evaluations [post]
func (c *StaffController) CreateEvaluation(ctx *gin.Context) {
	var req CreateEvaluationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if _, err := c.SemesterRepo.FindByID(req.SemesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.BadRequest(ctx, "semester does not exist")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	evaluation := &model.Evaluation{
		SemesterID:           req.SemesterID,
		NameDe:               req.NameDe,
		NameEn:               req.NameEn,
		State:                model.StateNew,
		ParticipantCount:     req.ParticipantCount,
		VoteStartDate:        req.VoteStartDate,
		VoteEndDate:          req.VoteEndDate,
		IsSingleResult:       req.IsSingleResult,
		GetsNoGradeDocuments: req.GetsNoGradeDocuments,
	}
	if err := c.EvaluationRepo.Create(evaluation); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, evaluation)
}

// Transition godoc
// @Summary 执行评教状态转换
// @Description action 取值：prepare, approve, revert, begin, end, finish-review, publish, revoke
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "评教ID"
// @Param action path string true "转换动作"
// @Success 200 {object} util.Response{data=model.Evaluation}
// @Failure 400 {object} util.Response "仍有未审核的文本答案"
// @Failure 409 {object} util.Response "当前状态不允许该转换"
// @Router /api/staff/evaluations/{id}/{action} [post]
func (c *StaffController) Transition(ctx *gin.Context) {
	evaluationID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var (
		evaluation *model.Evaluation
		err        error
	)
	reqCtx := ctx.Request.Context()

	switch ctx.Param("action") {
	case "prepare":
		evaluation, err = c.WorkflowService.Prepare(reqCtx, evaluationID)
	case "approve":
		evaluation, err = c.WorkflowService.Approve(reqCtx, evaluationID)
	case "revert":
		evaluation, err = c.WorkflowService.RevertToNew(reqCtx, evaluationID)
	case "begin":
		evaluation, err = c.WorkflowService.BeginEvaluation(reqCtx, evaluationID)
	case "end":
		evaluation, err = c.WorkflowService.EndEvaluation(reqCtx, evaluationID)
	case "finish-review":
		evaluation, err = c.WorkflowService.FinishReview(reqCtx, evaluationID)
	case "publish":
		evaluation, err = c.WorkflowService.Publish(reqCtx, evaluationID)
	case "revoke":
		evaluation, err = c.WorkflowService.Revoke(reqCtx, evaluationID)
	default:
		util.BadRequest(ctx, "unknown action")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidStateTransition):
			util.Error(ctx, 409, err.Error())
		case errors.Is(err, util.ErrOpenTextAnswers):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{
		"evaluation": evaluation,
		"warnings":   c.WorkflowService.Warnings(evaluation),
	})
}

// ReviewTextAnswerRequest 文本答案审核
// swagger:model ReviewTextAnswerRequest
type ReviewTextAnswerRequest struct {
	Action         string `json:"action" binding:"required,oneof=publish private hide unreview"`
	ReviewedAnswer string `json:"reviewedAnswer"`
}

// ReviewTextAnswer godoc
// @Summary 审核文本答案
// @Description publish/private/hide 标记答案去向，unreview 撤销审核；已发布的评教不可再审
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "文本答案ID"
// @Param body body ReviewTextAnswerRequest true "审核动作"
// @Success 200 {object} util.Response{data=model.TextAnswer}
// @Failure 409 {object} util.Response "评教已发布"
// @Router /api/staff/textanswers/{id}/review [post]
func (c *StaffController) ReviewTextAnswer(ctx *gin.Context) {
	var req ReviewTextAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.AnswerRepo.FindTextAnswerByID(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	evaluation, err := c.EvaluationRepo.FindByID(answer.Contribution.EvaluationID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if evaluation.IsPublished() {
		util.Error(ctx, 409, "evaluation already published")
		return
	}

	switch req.Action {
	case "publish":
		answer.State = model.TextAnswerPublished
		answer.Checked = true
	case "private":
		answer.State = model.TextAnswerPrivate
		answer.Checked = true
	case "hide":
		answer.State = model.TextAnswerHidden
		answer.Checked = true
	case "unreview":
		answer.State = model.TextAnswerNotReviewed
		answer.Checked = false
	}
	if req.ReviewedAnswer != "" {
		answer.ReviewedAnswer = req.ReviewedAnswer
	}

	if err := c.AnswerRepo.UpdateTextAnswer(answer); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}

// RefreshCache godoc
// @Summary 重建全部结果缓存
// @Description 清空缓存前缀后为所有已发布评教重建条目，可重复执行
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/staff/cache/refresh [post]
func (c *StaffController) RefreshCache(ctx *gin.Context) {
	refreshed, err := c.CacheService.RefreshAll(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"refreshed": refreshed})
}

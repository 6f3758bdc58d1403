package controller

import (
	"course_eval_backend/internal/model"
	"course_eval_backend/internal/repository"
	"course_eval_backend/internal/service"
	"course_eval_backend/internal/util"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// previewStates 结果发布前可被评审员与贡献者预览的状态
var previewStates = []model.EvaluationState{
	model.StateInEvaluation,
	model.StateEvaluated,
	model.StateReviewed,
}

type ResultsController struct {
	ResultsService *service.ResultsService
	GradeService   *service.GradeService
	CacheService   *service.ResultsCacheService
	AuthService    *service.AuthService
	SemesterRepo   *repository.SemesterRepository
	EvaluationRepo *repository.EvaluationRepository
}

func NewResultsController(
	resultsService *service.ResultsService,
	gradeService *service.GradeService,
	cacheService *service.ResultsCacheService,
	authService *service.AuthService,
	semesterRepo *repository.SemesterRepository,
	evaluationRepo *repository.EvaluationRepository,
) *ResultsController {
	return &ResultsController{
		ResultsService: resultsService,
		GradeService:   gradeService,
		CacheService:   cacheService,
		AuthService:    authService,
		SemesterRepo:   semesterRepo,
		EvaluationRepo: evaluationRepo,
	}
}

func parseLang(ctx *gin.Context) string {
	lang := ctx.DefaultQuery("lang", "en")
	if lang != "en" && lang != "de" {
		lang = "en"
	}
	return lang
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// semesterIndexEntry 索引页的一个学期条目
type semesterIndexEntry struct {
	SemesterID  uint              `json:"semesterId"`
	Name        string            `json:"name"`
	Evaluations []json.RawMessage `json:"evaluations"`
}

// Index godoc
// @Summary 结果索引页
// @Description 列出含已发布评教的学期，评教载荷来自缓存的批量读取
// @Tags 结果
// @Produce json
// @Security BearerAuth
// @Param lang query string false "语言 en|de" default(en)
// @Success 200 {object} util.Response{data=[]semesterIndexEntry}
// @Router /api/results [get]
func (c *ResultsController) Index(ctx *gin.Context) {
	viewer := c.AuthService.GetCurrentUser(ctx)
	if viewer == nil {
		util.Unauthorized(ctx)
		return
	}
	lang := parseLang(ctx)

	semesters, err := c.SemesterRepo.FindAllWithPublishedEvaluations()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	// 按可见性把评教分成两批，各自一次 MGET
	type slot struct {
		semesterIdx int
		canSee      bool
		batchIdx    int
	}
	var visibleIDs, restrictedIDs []uint
	var slots [][]slot

	entries := make([]semesterIndexEntry, 0, len(semesters))
	for si, semester := range semesters {
		evaluations, err := c.EvaluationRepo.FindBySemesterAndStates(semester.ID, []model.EvaluationState{model.StatePublished})
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}

		entrySlots := make([]slot, 0, len(evaluations))
		for i := range evaluations {
			ev := &evaluations[i]
			canSee := viewer.IsReviewer() || c.GradeService.CanPublishRatingResults(ev)
			s := slot{semesterIdx: si, canSee: canSee}
			if canSee {
				s.batchIdx = len(visibleIDs)
				visibleIDs = append(visibleIDs, ev.ID)
			} else {
				s.batchIdx = len(restrictedIDs)
				restrictedIDs = append(restrictedIDs, ev.ID)
			}
			entrySlots = append(entrySlots, s)
		}
		slots = append(slots, entrySlots)
		entries = append(entries, semesterIndexEntry{
			SemesterID: semester.ID,
			Name:       semester.Name(lang),
		})
	}

	visiblePayloads, err := c.CacheService.IndexPayloads(ctx.Request.Context(), visibleIDs, lang, true)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	restrictedPayloads, err := c.CacheService.IndexPayloads(ctx.Request.Context(), restrictedIDs, lang, false)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	for si := range entries {
		payloads := make([]json.RawMessage, 0, len(slots[si]))
		for _, s := range slots[si] {
			if s.canSee {
				payloads = append(payloads, visiblePayloads[s.batchIdx])
			} else {
				payloads = append(payloads, restrictedPayloads[s.batchIdx])
			}
		}
		entries[si].Evaluations = payloads
	}

	util.Success(ctx, entries)
}

// semesterEvaluationEntry 学期详情页的一个评教条目
type semesterEvaluationEntry struct {
	EvaluationID     uint                  `json:"evaluationId"`
	Name             string                `json:"name"`
	State            model.EvaluationState `json:"state"`
	ParticipantCount int                   `json:"participantCount"`
	VoterCount       int                   `json:"voterCount"`
	IsSingleResult   bool                  `json:"isSingleResult"`

	AvgGrade     *float64            `json:"avgGrade,omitempty"`
	AvgDeviation *float64            `json:"avgDeviation,omitempty"`
	SingleRating *model.RatingResult `json:"singleRating,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// SemesterDetail godoc
// @Summary 学期结果详情
// @Description 实时聚合学期内评教的平均成绩；评审员额外可见未发布状态
// @Tags 结果
// @Produce json
// @Security BearerAuth
// @Param id path int true "学期ID"
// @Param lang query string false "语言 en|de" default(en)
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response
// @Router /api/results/semesters/{id} [get]
func (c *ResultsController) SemesterDetail(ctx *gin.Context) {
	viewer := c.AuthService.GetCurrentUser(ctx)
	if viewer == nil {
		util.Unauthorized(ctx)
		return
	}
	semesterID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	lang := parseLang(ctx)

	semester, err := c.SemesterRepo.FindByID(semesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	states := []model.EvaluationState{model.StatePublished}
	if viewer.IsReviewer() {
		states = append(states, previewStates...)
	}

	evaluations, err := c.EvaluationRepo.FindBySemesterAndStates(semesterID, states)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	entries := make([]semesterEvaluationEntry, 0, len(evaluations))
	for i := range evaluations {
		ev := &evaluations[i]
		entry := semesterEvaluationEntry{
			EvaluationID:     ev.ID,
			Name:             ev.Name(lang),
			State:            ev.State,
			ParticipantCount: ev.ParticipantCount,
			VoterCount:       ev.VoterCount,
			IsSingleResult:   ev.IsSingleResult,
		}

		if viewer.IsReviewer() || c.GradeService.CanPublishRatingResults(ev) {
			result, err := c.ResultsService.CollectResultsForLanguage(ev, lang)
			if err != nil {
				util.LogInternalError(ctx, err)
				return
			}
			if ev.IsSingleResult {
				entry.SingleRating = service.SingleRatingResult(result)
			} else {
				entry.AvgGrade, entry.AvgDeviation = c.GradeService.AverageGradeAndDeviation(result)
			}
		}

		entries = append(entries, entry)
	}

	util.Success(ctx, gin.H{
		"semesterId":  semester.ID,
		"name":        semester.Name(lang),
		"evaluations": entries,
	})
}

// 查看者能否访问这个评教的结果页
func (c *ResultsController) canAccessEvaluation(viewer *model.User, evaluation *model.Evaluation, representedIDs map[uint]bool) bool {
	if evaluation.IsPublished() {
		return true
	}
	if !statePreviewable(evaluation.State) {
		return false
	}
	return viewer.IsReviewer() ||
		evaluation.IsUserContributor(viewer.ID) ||
		evaluation.IsUserResponsibleOrDelegate(representedIDs)
}

func statePreviewable(state model.EvaluationState) bool {
	for _, s := range previewStates {
		if s == state {
			return true
		}
	}
	return false
}

// EvaluationDetail godoc
// @Summary 评教结果详情
// @Description 实时聚合并按查看者过滤；view=public 时不展示文本答案
// @Tags 结果
// @Produce json
// @Security BearerAuth
// @Param id path int true "评教ID"
// @Param lang query string false "语言 en|de" default(en)
// @Param view query string false "视图 full|public" default(full)
// @Success 200 {object} util.Response{data=model.EvaluationResult}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/results/evaluations/{id} [get]
func (c *ResultsController) EvaluationDetail(ctx *gin.Context) {
	c.serveEvaluationResult(ctx, false)
}

// Export godoc
// @Summary 导出评教结果
// @Description 导出视图：只含查看者本人相关、非私密的文本答案
// @Tags 结果
// @Produce json
// @Security BearerAuth
// @Param id path int true "评教ID"
// @Param lang query string false "语言 en|de" default(en)
// @Success 200 {object} util.Response{data=model.EvaluationResult}
// @Failure 403 {object} util.Response
// @Router /api/results/evaluations/{id}/export [get]
func (c *ResultsController) Export(ctx *gin.Context) {
	c.serveEvaluationResult(ctx, true)
}

func (c *ResultsController) serveEvaluationResult(ctx *gin.Context, export bool) {
	viewer := c.AuthService.GetCurrentUser(ctx)
	if viewer == nil {
		util.Unauthorized(ctx)
		return
	}
	evaluationID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	lang := parseLang(ctx)

	evaluation, err := c.EvaluationRepo.FindByID(evaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	representedIDs, err := c.ResultsService.RepresentedIDsForViewer(viewer)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	if !c.canAccessEvaluation(viewer, evaluation, representedIDs) {
		util.Forbidden(ctx)
		return
	}

	mode := service.ViewFull
	if export {
		mode = service.ViewExport
	} else if ctx.Query("view") == "public" {
		mode = service.ViewPublic
	}

	result, err := c.ResultsService.CollectResultsForLanguage(evaluation, lang)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	c.ResultsService.FilterForViewer(result, evaluation, viewer, representedIDs, mode)

	if viewer.IsReviewer() || c.GradeService.CanPublishRatingResults(evaluation) {
		if !evaluation.IsSingleResult {
			result.AvgGrade, result.AvgDeviation = c.GradeService.AverageGradeAndDeviation(result)
		}
	}

	util.Success(ctx, result)
}

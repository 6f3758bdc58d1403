package controller

import (
	"course_eval_backend/internal/model"
	"course_eval_backend/internal/service"
	"course_eval_backend/internal/util"
	"course_eval_backend/pkg/logger"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type GradeDocumentController struct {
	GradeDocumentService *service.GradeDocumentService
	AuthService          *service.AuthService
}

func NewGradeDocumentController(
	gradeDocumentService *service.GradeDocumentService,
	authService *service.AuthService,
) *GradeDocumentController {
	return &GradeDocumentController{
		GradeDocumentService: gradeDocumentService,
		AuthService:          authService,
	}
}

// List godoc
// @Summary 评教的成绩单列表
// @Tags 成绩单
// @Produce json
// @Security BearerAuth
// @Param id path int true "评教ID"
// @Success 200 {object} util.Response{data=[]model.GradeDocument}
// @Failure 404 {object} util.Response
// @Router /api/evaluations/{id}/grades [get]
func (c *GradeDocumentController) List(ctx *gin.Context) {
	evaluationID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	docs, err := c.GradeDocumentService.List(evaluationID)
	if err != nil {
		if errors.Is(err, util.ErrEvaluationNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, docs)
}

// UploadGradeDocumentRequest 成绩单上传表单
// swagger:model UploadGradeDocumentRequest
type UploadGradeDocumentRequest struct {
	Type        string `form:"type" binding:"required,oneof=midterm final"`
	Description string `form:"description"`
}

// Upload godoc
// @Summary 上传成绩单
// @Tags 成绩单
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "评教ID"
// @Param type formData string true "类型 midterm|final"
// @Param description formData string false "描述"
// @Param file formData file true "成绩单文件"
// @Success 201 {object} util.Response{data=model.GradeDocument}
// @Failure 400 {object} util.Response "评教不接收成绩单"
// @Router /api/evaluations/{id}/grades [post]
func (c *GradeDocumentController) Upload(ctx *gin.Context) {
	viewer := c.AuthService.GetCurrentUser(ctx)
	if viewer == nil {
		util.Unauthorized(ctx)
		return
	}
	evaluationID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var req UploadGradeDocumentRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	doc, err := c.GradeDocumentService.Upload(
		ctx.Request.Context(),
		evaluationID,
		viewer.ID,
		model.GradeDocumentType(req.Type),
		req.Description,
		file.Filename,
		src,
		file.Size,
		file.Header.Get("Content-Type"),
	)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrEvaluationNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrEvaluationNotGraded):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, doc)
}

// Download godoc
// @Summary 下载成绩单
// @Tags 成绩单
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "成绩单ID"
// @Success 200 {file} binary
// @Failure 404 {object} util.Response
// @Router /api/grades/{id}/download [get]
func (c *GradeDocumentController) Download(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	reader, doc, err := c.GradeDocumentService.Download(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, util.ErrGradeDocumentNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	defer reader.Close()

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	ctx.Header("Content-Type", "application/octet-stream")
	ctx.Status(http.StatusOK)
	if _, err := io.Copy(ctx.Writer, reader); err != nil {
		// 响应已部分写出，只能记录
		logger.Log.Error("成绩单下载中断", zap.Error(err))
	}
}

// Delete godoc
// @Summary 删除成绩单
// @Tags 成绩单
// @Produce json
// @Security BearerAuth
// @Param id path int true "成绩单ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/grades/{id} [delete]
func (c *GradeDocumentController) Delete(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.GradeDocumentService.Delete(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, util.ErrGradeDocumentNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

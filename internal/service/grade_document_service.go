package service

import (
	"context"
	"course_eval_backend/internal/model"
	"course_eval_backend/internal/repository"
	"course_eval_backend/internal/util"
	"course_eval_backend/pkg/logger"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GradeDocumentService 成绩单文件的上传、下载与删除
type GradeDocumentService struct {
	GradeDocumentRepo *repository.GradeDocumentRepository
	EvaluationRepo    *repository.EvaluationRepository
	Storage           *StorageService
}

func NewGradeDocumentService(
	gradeDocumentRepo *repository.GradeDocumentRepository,
	evaluationRepo *repository.EvaluationRepository,
	storage *StorageService,
) *GradeDocumentService {
	return &GradeDocumentService{
		GradeDocumentRepo: gradeDocumentRepo,
		EvaluationRepo:    evaluationRepo,
		Storage:           storage,
	}
}

// Upload 上传成绩单；标记为不收成绩单的评教直接拒绝
func (s *GradeDocumentService) Upload(
	ctx context.Context,
	evaluationID uint,
	uploaderID uint,
	docType model.GradeDocumentType,
	description string,
	fileName string,
	reader io.Reader,
	size int64,
	contentType string,
) (*model.GradeDocument, error) {
	evaluation, err := s.EvaluationRepo.FindByID(evaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEvaluationNotFound
		}
		return nil, err
	}
	if evaluation.GetsNoGradeDocuments {
		return nil, util.ErrEvaluationNotGraded
	}

	key := fmt.Sprintf("grades/%d/%s%s", evaluationID, uuid.New().String(), filepath.Ext(fileName))
	if _, err := s.Storage.Upload(ctx, key, reader, size, contentType); err != nil {
		return nil, err
	}

	doc := &model.GradeDocument{
		EvaluationID: evaluationID,
		Type:         docType,
		Description:  description,
		FileKey:      key,
		FileName:     fileName,
		UploaderID:   uploaderID,
	}
	if err := s.GradeDocumentRepo.Create(doc); err != nil {
		// 入库失败时回收已上传的对象
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("清理成绩单对象失败",
				zap.String("key", key),
				zap.Error(delErr))
		}
		return nil, err
	}

	logger.Log.Info("成绩单上传成功",
		zap.Uint("evaluationId", evaluationID),
		zap.String("type", string(docType)),
		zap.String("key", key))
	return doc, nil
}

// Download 返回成绩单文件流和原始文件名
func (s *GradeDocumentService) Download(ctx context.Context, id uint) (io.ReadCloser, *model.GradeDocument, error) {
	doc, err := s.GradeDocumentRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrGradeDocumentNotFound
		}
		return nil, nil, err
	}

	reader, err := s.Storage.Download(ctx, doc.FileKey)
	if err != nil {
		return nil, nil, err
	}
	return reader, doc, nil
}

func (s *GradeDocumentService) List(evaluationID uint) ([]model.GradeDocument, error) {
	if _, err := s.EvaluationRepo.FindByID(evaluationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEvaluationNotFound
		}
		return nil, err
	}
	return s.GradeDocumentRepo.ForEvaluation(evaluationID)
}

func (s *GradeDocumentService) Delete(ctx context.Context, id uint) error {
	doc, err := s.GradeDocumentRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrGradeDocumentNotFound
		}
		return err
	}

	if err := s.GradeDocumentRepo.Delete(id); err != nil {
		return err
	}
	if err := s.Storage.Delete(ctx, doc.FileKey); err != nil {
		logger.Log.Warn("删除成绩单对象失败",
			zap.String("key", doc.FileKey),
			zap.Error(err))
	}
	return nil
}

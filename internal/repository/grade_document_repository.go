package repository

import (
	"course_eval_backend/internal/model"

	"gorm.io/gorm"
)

type GradeDocumentRepository struct {
	DB *gorm.DB
}

func NewGradeDocumentRepository(db *gorm.DB) *GradeDocumentRepository {
	return &GradeDocumentRepository{DB: db}
}

func (r *GradeDocumentRepository) Create(doc *model.GradeDocument) error {
	return r.DB.Create(doc).Error
}

func (r *GradeDocumentRepository) FindByID(id uint) (*model.GradeDocument, error) {
	var doc model.GradeDocument
	err := r.DB.Preload("Evaluation").First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *GradeDocumentRepository) ForEvaluation(evaluationID uint) ([]model.GradeDocument, error) {
	var docs []model.GradeDocument
	err := r.DB.Where("evaluation_id = ?", evaluationID).
		Order("type, created_at").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *GradeDocumentRepository) CountByType(evaluationID uint, docType model.GradeDocumentType) (int64, error) {
	var count int64
	err := r.DB.Model(&model.GradeDocument{}).
		Where("evaluation_id = ? AND type = ?", evaluationID, docType).
		Count(&count).Error
	return count, err
}

func (r *GradeDocumentRepository) Delete(id uint) error {
	return r.DB.Delete(&model.GradeDocument{}, id).Error
}

package repository

import (
	"course_eval_backend/internal/model"

	"gorm.io/gorm"
)

type EvaluationRepository struct {
	DB *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{DB: db}
}

// withResultPreloads 聚合需要的完整快照：贡献（按 order）、
// 贡献者、问卷（按 index）及问卷下的问题（按 order）
func (r *EvaluationRepository) withResultPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Contributions", func(db *gorm.DB) *gorm.DB {
			return db.Order("contributions.order")
		}).
		Preload("Contributions.Contributor").
		Preload("Contributions.Questionnaires", func(db *gorm.DB) *gorm.DB {
			return db.Order("questionnaires.index")
		}).
		Preload("Contributions.Questionnaires.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order")
		})
}

func (r *EvaluationRepository) FindByID(id uint) (*model.Evaluation, error) {
	var evaluation model.Evaluation
	err := r.withResultPreloads(r.DB).First(&evaluation, id).Error
	if err != nil {
		return nil, err
	}
	return &evaluation, nil
}

func (r *EvaluationRepository) FindBySemesterAndStates(semesterID uint, states []model.EvaluationState) ([]model.Evaluation, error) {
	var evaluations []model.Evaluation
	err := r.withResultPreloads(r.DB).
		Where("semester_id = ? AND state IN ?", semesterID, states).
		Order("name_de").
		Find(&evaluations).Error
	if err != nil {
		return nil, err
	}
	return evaluations, nil
}

// FindPublished 缓存批量重建使用
func (r *EvaluationRepository) FindPublished() ([]model.Evaluation, error) {
	var evaluations []model.Evaluation
	err := r.withResultPreloads(r.DB).
		Where("state = ?", model.StatePublished).
		Order("id").
		Find(&evaluations).Error
	if err != nil {
		return nil, err
	}
	return evaluations, nil
}

func (r *EvaluationRepository) UpdateState(id uint, state model.EvaluationState) error {
	return r.DB.Model(&model.Evaluation{}).Where("id = ?", id).
		Update("state", state).Error
}

func (r *EvaluationRepository) Create(evaluation *model.Evaluation) error {
	return r.DB.Create(evaluation).Error
}

package repository

import (
	"course_eval_backend/internal/model"

	"gorm.io/gorm"
)

type SemesterRepository struct {
	DB *gorm.DB
}

func NewSemesterRepository(db *gorm.DB) *SemesterRepository {
	return &SemesterRepository{DB: db}
}

func (r *SemesterRepository) FindAll() ([]model.Semester, error) {
	var semesters []model.Semester
	err := r.DB.Order("created_at DESC, name_de").Find(&semesters).Error
	if err != nil {
		return nil, err
	}
	return semesters, nil
}

func (r *SemesterRepository) FindByID(id uint) (*model.Semester, error) {
	var semester model.Semester
	err := r.DB.First(&semester, id).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

// FindAllWithPublishedEvaluations 结果索引页只列出有已发布评教的学期
func (r *SemesterRepository) FindAllWithPublishedEvaluations() ([]model.Semester, error) {
	var semesters []model.Semester
	err := r.DB.
		Joins("JOIN evaluations ON evaluations.semester_id = semesters.id").
		Where("evaluations.state = ?", model.StatePublished).
		Group("semesters.id").
		Order("semesters.created_at DESC").
		Find(&semesters).Error
	if err != nil {
		return nil, err
	}
	return semesters, nil
}

func (r *SemesterRepository) Create(semester *model.Semester) error {
	return r.DB.Create(semester).Error
}

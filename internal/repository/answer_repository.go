package repository

import (
	"course_eval_backend/internal/model"

	"gorm.io/gorm"
)

type AnswerRepository struct {
	DB *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{DB: db}
}

// RatingAnswersForEvaluation 一次性拉取该评教的全部评分答案
func (r *AnswerRepository) RatingAnswersForEvaluation(evaluationID uint) ([]model.RatingAnswer, error) {
	var answers []model.RatingAnswer
	err := r.DB.
		Joins("JOIN contributions ON contributions.id = rating_answers.contribution_id").
		Where("contributions.evaluation_id = ?", evaluationID).
		Order("rating_answers.created_at, rating_answers.id").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

// TextAnswersForEvaluation 按插入顺序返回文本答案，带上可见性判断所需的贡献上下文
func (r *AnswerRepository) TextAnswersForEvaluation(evaluationID uint) ([]model.TextAnswer, error) {
	var answers []model.TextAnswer
	err := r.DB.
		Preload("Contribution").
		Preload("Contribution.Contributor").
		Joins("JOIN contributions ON contributions.id = text_answers.contribution_id").
		Where("contributions.evaluation_id = ?", evaluationID).
		Order("text_answers.created_at, text_answers.id").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *AnswerRepository) FindTextAnswerByID(id string) (*model.TextAnswer, error) {
	var answer model.TextAnswer
	err := r.DB.Preload("Contribution").First(&answer, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *AnswerRepository) UpdateTextAnswer(answer *model.TextAnswer) error {
	return r.DB.Save(answer).Error
}

// CountOpenTextAnswers 评审完成转换的前置条件：不得有未审核的文本答案
func (r *AnswerRepository) CountOpenTextAnswers(evaluationID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.TextAnswer{}).
		Joins("JOIN contributions ON contributions.id = text_answers.contribution_id").
		Where("contributions.evaluation_id = ? AND text_answers.checked = ?", evaluationID, false).
		Count(&count).Error
	return count, err
}

func (r *AnswerRepository) CreateRatingAnswer(answer *model.RatingAnswer) error {
	return r.DB.Create(answer).Error
}

func (r *AnswerRepository) CreateTextAnswer(answer *model.TextAnswer) error {
	return r.DB.Create(answer).Error
}

package model

import "gorm.io/gorm"

// TextAnswerVisibility 贡献者对已发布文本答案的可见范围
type TextAnswerVisibility string

const (
	// VisibilityOwn 只能看到针对自己的文本答案
	VisibilityOwn TextAnswerVisibility = "own"
	// VisibilityCourse 额外能看到课程级（general）贡献的文本答案
	VisibilityCourse TextAnswerVisibility = "course"
	// VisibilityGeneral 同 course：general 范围文本答案对其可见
	VisibilityGeneral TextAnswerVisibility = "general"
	// VisibilityAll 能看到该评教所有已发布文本答案
	VisibilityAll TextAnswerVisibility = "all"
)

// Contribution 一个评教与一位贡献者（或课程整体）及其问卷的关联
// swagger:model Contribution
type Contribution struct {
	BaseModel
	EvaluationID uint       `gorm:"uniqueIndex:idx_eval_contributor;not null" json:"evaluationId"`
	Evaluation   Evaluation `json:"-"`

	// ContributorID 为空表示课程级贡献（general contribution）
	ContributorID *uint `gorm:"uniqueIndex:idx_eval_contributor" json:"contributorId"`
	Contributor   *User `json:"-"`

	Responsible bool `gorm:"default:false" json:"responsible"`
	CanEdit     bool `gorm:"default:false" json:"canEdit"`

	TextAnswerVisibility TextAnswerVisibility `gorm:"size:10;default:'own'" json:"textAnswerVisibility"`

	Order int `gorm:"default:0" json:"order"`

	Questionnaires []Questionnaire `gorm:"many2many:contribution_questionnaires" json:"-"`
}

func (Contribution) TableName() string {
	return "contributions"
}

func (c *Contribution) IsGeneral() bool {
	return c.ContributorID == nil
}

// BeforeSave 负责人总是可以编辑
func (c *Contribution) BeforeSave(tx *gorm.DB) error {
	if c.Responsible {
		c.CanEdit = true
	}
	return nil
}

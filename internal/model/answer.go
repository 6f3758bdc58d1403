package model

// 出于匿名性考虑，答案记录不引用作答的学生，只记录被评价的贡献。

// RatingAnswer 一条离散评分答案（Likert/Grade/YesNo 共用，类型由所属问题决定）。
// Likert：1=非常同意 .. 5=非常不同意；Grade：1=最好 .. 5=最差；
// YesNo：1=是，5=否。
// swagger:model RatingAnswer
type RatingAnswer struct {
	UUIDBase
	QuestionID     uint         `gorm:"index;not null" json:"questionId"`
	Question       Question     `json:"-"`
	ContributionID uint         `gorm:"index;not null" json:"contributionId"`
	Contribution   Contribution `json:"-"`

	Answer int `gorm:"not null" json:"answer"`
}

func (RatingAnswer) TableName() string {
	return "rating_answers"
}

// TextAnswerState 审核状态。只有 published 和 private 状态的答案才可能对外可见
type TextAnswerState string

const (
	TextAnswerNotReviewed TextAnswerState = "not_reviewed"
	TextAnswerPublished   TextAnswerState = "published"
	TextAnswerPrivate     TextAnswerState = "private"
	TextAnswerHidden      TextAnswerState = "hidden"
)

// swagger:model TextAnswer
type TextAnswer struct {
	UUIDBase
	QuestionID     uint         `gorm:"index;not null" json:"questionId"`
	Question       Question     `json:"-"`
	ContributionID uint         `gorm:"index;not null" json:"contributionId"`
	Contribution   Contribution `json:"-"`

	OriginalAnswer string `gorm:"type:text;not null" json:"originalAnswer"`
	// ReviewedAnswer 审核人修改后的文本，为空时展示原文
	ReviewedAnswer string `gorm:"type:text" json:"reviewedAnswer"`

	Checked bool            `gorm:"default:false" json:"checked"`
	State   TextAnswerState `gorm:"size:15;default:'not_reviewed'" json:"state"`
}

func (TextAnswer) TableName() string {
	return "text_answers"
}

// EffectiveAnswer 审核后的文本优先
func (a *TextAnswer) EffectiveAnswer() string {
	if a.ReviewedAnswer != "" {
		return a.ReviewedAnswer
	}
	return a.OriginalAnswer
}

func (a *TextAnswer) IsPrivate() bool {
	return a.State == TextAnswerPrivate
}

func (a *TextAnswer) IsPublished() bool {
	return a.State == TextAnswerPublished
}

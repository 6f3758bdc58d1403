package model

// QuestionKind 封闭的问题类型集合，聚合逻辑对其穷举分派
type QuestionKind string

const (
	KindText    QuestionKind = "text"
	KindLikert  QuestionKind = "likert"
	KindGrade   QuestionKind = "grade"
	KindHeading QuestionKind = "heading"
	KindYesNo   QuestionKind = "yes_no"
)

// swagger:model Question
type Question struct {
	BaseModel
	QuestionnaireID uint          `gorm:"index;not null" json:"questionnaireId"`
	Questionnaire   Questionnaire `json:"-"`

	TextDe string `gorm:"type:text;not null" json:"textDe"`
	TextEn string `gorm:"type:text;not null" json:"textEn"`

	Kind  QuestionKind `gorm:"size:10;not null" json:"kind"`
	Order int          `gorm:"default:0" json:"order"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) Text(lang string) string {
	if lang == "de" {
		return q.TextDe
	}
	return q.TextEn
}

// IsRatingQuestion 产生数值分布的问题类型
func (q *Question) IsRatingQuestion() bool {
	switch q.Kind {
	case KindLikert, KindGrade, KindYesNo:
		return true
	}
	return false
}

// ContributesToGrade 计入评教总评分的问题类型（YesNo 不计入）
func (q *Question) ContributesToGrade() bool {
	return q.Kind == KindLikert || q.Kind == KindGrade
}

func (q *Question) IsTextQuestion() bool {
	return q.Kind == KindText
}

func (q *Question) IsHeadingQuestion() bool {
	return q.Kind == KindHeading
}

package model

// Questionnaire 一组有序的问题
// swagger:model Questionnaire
type Questionnaire struct {
	BaseModel
	NameDe string `gorm:"size:255;unique;not null" json:"nameDe"`
	NameEn string `gorm:"size:255;unique;not null" json:"nameEn"`

	PublicNameDe string `gorm:"size:255" json:"publicNameDe"`
	PublicNameEn string `gorm:"size:255" json:"publicNameEn"`

	Index int `gorm:"default:0" json:"index"`

	IsForContributors bool `gorm:"default:false" json:"isForContributors"`
	// IsBelowContributors 课程级问卷中排在贡献者区块之后的部分
	IsBelowContributors bool `gorm:"default:false" json:"isBelowContributors"`
	Obsolete            bool `gorm:"default:false" json:"obsolete"`

	Questions []Question `json:"-"`
}

func (Questionnaire) TableName() string {
	return "questionnaires"
}

func (q *Questionnaire) Name(lang string) string {
	if lang == "de" {
		return q.NameDe
	}
	return q.NameEn
}

func (q *Questionnaire) PublicName(lang string) string {
	if lang == "de" {
		if q.PublicNameDe != "" {
			return q.PublicNameDe
		}
		return q.NameDe
	}
	if q.PublicNameEn != "" {
		return q.PublicNameEn
	}
	return q.NameEn
}

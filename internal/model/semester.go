package model

// swagger:model Semester
type Semester struct {
	BaseModel
	NameDe string `gorm:"size:255;unique;not null" json:"nameDe"`
	NameEn string `gorm:"size:255;unique;not null" json:"nameEn"`

	Evaluations []Evaluation `json:"-"`
}

func (Semester) TableName() string {
	return "semesters"
}

func (s *Semester) Name(lang string) string {
	if lang == "de" {
		return s.NameDe
	}
	return s.NameEn
}

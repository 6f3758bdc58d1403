package model

type GradeDocumentType string

const (
	MidtermGrades GradeDocumentType = "midterm"
	FinalGrades   GradeDocumentType = "final"
)

// GradeDocument 评教对应课程的成绩单文件，存储在对象存储中
// swagger:model GradeDocument
type GradeDocument struct {
	BaseModel
	EvaluationID uint       `gorm:"index;not null" json:"evaluationId"`
	Evaluation   Evaluation `json:"-"`

	Type        GradeDocumentType `gorm:"size:10;not null" json:"type"`
	Description string            `gorm:"size:255" json:"description"`

	// FileKey 对象存储中的文件名
	FileKey  string `gorm:"size:512;not null" json:"fileKey"`
	FileName string `gorm:"size:255;not null" json:"fileName"`

	UploaderID uint `gorm:"index" json:"uploaderId"`
}

func (GradeDocument) TableName() string {
	return "grade_documents"
}

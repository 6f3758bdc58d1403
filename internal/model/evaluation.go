package model

import (
	"time"
)

// EvaluationState 评教生命周期状态，只能通过 WorkflowService 的显式状态转换修改
type EvaluationState string

const (
	StateNew          EvaluationState = "new"
	StatePrepared     EvaluationState = "prepared"
	StateApproved     EvaluationState = "approved"
	StateInEvaluation EvaluationState = "in_evaluation"
	StateEvaluated    EvaluationState = "evaluated"
	StateReviewed     EvaluationState = "reviewed"
	StatePublished    EvaluationState = "published"
)

// swagger:model Evaluation
type Evaluation struct {
	BaseModel
	SemesterID uint     `gorm:"index;not null" json:"semesterId"`
	Semester   Semester `json:"-"`

	NameDe string `gorm:"size:255;not null" json:"nameDe"`
	NameEn string `gorm:"size:255;not null" json:"nameEn"`

	State EvaluationState `gorm:"size:20;default:'new';index" json:"state"`

	ParticipantCount int `gorm:"default:0" json:"participantCount"`
	VoterCount       int `gorm:"default:0" json:"voterCount"`

	VoteStartDate time.Time `json:"voteStartDate"`
	VoteEndDate   time.Time `json:"voteEndDate"`

	// 单一结果评教：只有一道评分题，没有真正的聚合
	IsSingleResult bool `gorm:"default:false" json:"isSingleResult"`

	GetsNoGradeDocuments bool `gorm:"default:false" json:"getsNoGradeDocuments"`

	Contributions []Contribution `json:"-"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

func (e *Evaluation) Name(lang string) string {
	if lang == "de" {
		return e.NameDe
	}
	return e.NameEn
}

func (e *Evaluation) IsPublished() bool {
	return e.State == StatePublished
}

// StillRunning 还未结束评教阶段，结果页需要显示预览警告
func (e *Evaluation) StillRunning() bool {
	switch e.State {
	case StateInEvaluation, StateEvaluated, StateReviewed:
		return true
	}
	return false
}

// GeneralContribution 返回无贡献者的课程级贡献，每个评教有且仅有一个
func (e *Evaluation) GeneralContribution() *Contribution {
	for i := range e.Contributions {
		if e.Contributions[i].IsGeneral() {
			return &e.Contributions[i]
		}
	}
	return nil
}

// IsUserContributor 用户是否是该评教的贡献者之一
func (e *Evaluation) IsUserContributor(userID uint) bool {
	for i := range e.Contributions {
		c := &e.Contributions[i]
		if c.ContributorID != nil && *c.ContributorID == userID {
			return true
		}
	}
	return false
}

// IsUserResponsibleOrDelegate 用户（或其代理的某个用户）是否为负责人
func (e *Evaluation) IsUserResponsibleOrDelegate(representedIDs map[uint]bool) bool {
	for i := range e.Contributions {
		c := &e.Contributions[i]
		if c.Responsible && c.ContributorID != nil && representedIDs[*c.ContributorID] {
			return true
		}
	}
	return false
}

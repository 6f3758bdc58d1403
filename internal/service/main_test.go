package service

import (
	"course_eval_backend/internal/config"
	"course_eval_backend/internal/model"
	"course_eval_backend/pkg/logger"
	"os"
	"testing"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Results: config.ResultsConfig{
			WarningPercentage:      0.5,
			WarningCount:           4,
			MinAnswerCount:         2,
			MinAnswerPercentage:    0.2,
			GradePercentage:        0.8,
			ContributionPercentage: 0.5,
			Languages:              []string{"en", "de"},
		},
	}
}

func uintPtr(v uint) *uint { return &v }

func newUser(id uint, role model.UserRole) *model.User {
	return &model.User{
		BaseModel: model.BaseModel{ID: id},
		Name:      "user",
		Role:      role,
	}
}

// 固定结构的评教：
//
//	贡献1：课程级，问卷10（标题100、李克特101、文本102）
//	贡献2：贡献者7，问卷20（李克特201、文本202）
func newEvaluation() *model.Evaluation {
	generalQuestionnaire := model.Questionnaire{
		BaseModel: model.BaseModel{ID: 10},
		NameEn:    "General",
		NameDe:    "Allgemein",
		Index:     0,
		Questions: []model.Question{
			{BaseModel: model.BaseModel{ID: 100}, Kind: model.KindHeading, TextEn: "Course", TextDe: "Kurs"},
			{BaseModel: model.BaseModel{ID: 101}, Kind: model.KindLikert, TextEn: "The course was well structured", TextDe: "Der Kurs war gut strukturiert"},
			{BaseModel: model.BaseModel{ID: 102}, Kind: model.KindText, TextEn: "Comments", TextDe: "Anmerkungen"},
		},
	}
	contributorQuestionnaire := model.Questionnaire{
		BaseModel:         model.BaseModel{ID: 20},
		NameEn:            "Lecturer",
		NameDe:            "Dozent",
		Index:             1,
		IsForContributors: true,
		Questions: []model.Question{
			{BaseModel: model.BaseModel{ID: 201}, Kind: model.KindLikert, TextEn: "Explains well", TextDe: "Erklärt gut"},
			{BaseModel: model.BaseModel{ID: 202}, Kind: model.KindText, TextEn: "Feedback", TextDe: "Feedback"},
		},
	}

	contributor := newUser(7, model.Contributor)

	return &model.Evaluation{
		BaseModel:        model.BaseModel{ID: 1},
		NameEn:           "Algorithms",
		NameDe:           "Algorithmen",
		State:            model.StatePublished,
		ParticipantCount: 10,
		VoterCount:       5,
		Contributions: []model.Contribution{
			{
				BaseModel:      model.BaseModel{ID: 1},
				EvaluationID:   1,
				Questionnaires: []model.Questionnaire{generalQuestionnaire},
			},
			{
				BaseModel:            model.BaseModel{ID: 2},
				EvaluationID:         1,
				ContributorID:        uintPtr(7),
				Contributor:          contributor,
				Responsible:          true,
				TextAnswerVisibility: model.VisibilityOwn,
				Order:                0,
				Questionnaires:       []model.Questionnaire{contributorQuestionnaire},
			},
		},
	}
}

func newTextAnswer(id string, contributionID uint, state model.TextAnswerState) *model.TextAnswer {
	return &model.TextAnswer{
		UUIDBase:       model.UUIDBase{ID: id},
		ContributionID: contributionID,
		QuestionID:     102,
		OriginalAnswer: "some comment",
		State:          state,
		Checked:        state != model.TextAnswerNotReviewed,
	}
}

package service

import (
	"course_eval_backend/internal/model"
	"math"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func ratingResult(kind model.QuestionKind, avg float64, count int) *model.RatingResult {
	return &model.RatingResult{
		QuestionID: 1,
		Kind:       kind,
		Counts:     map[int]int{},
		CountSum:   count,
		Average:    floatPtr(avg),
	}
}

func resultWith(general, contributor []*model.RatingResult) *model.EvaluationResult {
	toQuestionResults := func(rrs []*model.RatingResult) []model.QuestionResult {
		out := make([]model.QuestionResult, len(rrs))
		for i, rr := range rrs {
			out[i] = rr
		}
		return out
	}
	return &model.EvaluationResult{
		ContributionResults: []*model.ContributionResult{
			{
				ContributionID: 1,
				IsGeneral:      true,
				QuestionnaireResults: []*model.QuestionnaireResult{
					{QuestionnaireID: 10, QuestionResults: toQuestionResults(general)},
				},
			},
			{
				ContributionID: 2,
				ContributorID:  uintPtr(7),
				QuestionnaireResults: []*model.QuestionnaireResult{
					{QuestionnaireID: 20, QuestionResults: toQuestionResults(contributor)},
				},
			},
		},
	}
}

func TestAverageGradeFormula(t *testing.T) {
	s := NewGradeService(testConfig())

	// likert: 人 2.0，课程 4.0 → CP=0.5 合并为 3.0
	// grade:  人 1.0，课程 3.0 → 合并为 2.0
	// final = 0.8*2.0 + 0.2*3.0 = 2.2
	result := resultWith(
		[]*model.RatingResult{
			ratingResult(model.KindLikert, 4.0, 10),
			ratingResult(model.KindGrade, 3.0, 10),
		},
		[]*model.RatingResult{
			ratingResult(model.KindLikert, 2.0, 10),
			ratingResult(model.KindGrade, 1.0, 10),
		},
	)

	grade, deviation := s.AverageGradeAndDeviation(result)
	if grade == nil || deviation == nil {
		t.Fatal("grade and deviation must be set when rating answers exist")
	}
	if math.Abs(*grade-2.2) > 1e-9 {
		t.Fatalf("grade=%f, want 2.2", *grade)
	}
}

func TestAverageGradeWeightShift(t *testing.T) {
	s := NewGradeService(testConfig())

	// 只有课程级李克特作答：其余分量的权重全部转移
	result := resultWith(
		[]*model.RatingResult{ratingResult(model.KindLikert, 3.5, 5)},
		nil,
	)

	grade, _ := s.AverageGradeAndDeviation(result)
	if grade == nil || math.Abs(*grade-3.5) > 1e-9 {
		t.Fatalf("grade=%v, want 3.5", grade)
	}
}

func TestAverageGradeExcludesYesNo(t *testing.T) {
	s := NewGradeService(testConfig())

	result := resultWith(
		[]*model.RatingResult{
			ratingResult(model.KindLikert, 2.0, 5),
			ratingResult(model.KindYesNo, 5.0, 5),
		},
		nil,
	)

	grade, _ := s.AverageGradeAndDeviation(result)
	if grade == nil || math.Abs(*grade-2.0) > 1e-9 {
		t.Fatalf("grade=%v, want 2.0 (yes/no must not contribute)", grade)
	}
}

func TestAverageGradeNoAnswers(t *testing.T) {
	s := NewGradeService(testConfig())

	// 无作答 → 两个值都缺失，而不是 0
	result := resultWith(
		[]*model.RatingResult{{QuestionID: 1, Kind: model.KindLikert, Counts: map[int]int{}}},
		nil,
	)

	grade, deviation := s.AverageGradeAndDeviation(result)
	if grade != nil || deviation != nil {
		t.Fatalf("grade=%v deviation=%v, want nil/nil", grade, deviation)
	}
}

func TestAverageGradeDeviation(t *testing.T) {
	s := NewGradeService(testConfig())

	// 两题均值 1.0 和 3.0 → 标准差 1.0
	result := resultWith(
		[]*model.RatingResult{
			ratingResult(model.KindLikert, 1.0, 5),
			ratingResult(model.KindLikert, 3.0, 5),
		},
		nil,
	)

	_, deviation := s.AverageGradeAndDeviation(result)
	if deviation == nil || math.Abs(*deviation-1.0) > 1e-9 {
		t.Fatalf("deviation=%v, want 1.0", deviation)
	}
}

func TestCanPublishRatingResults(t *testing.T) {
	s := NewGradeService(testConfig())

	cases := []struct {
		voters, participants int
		want                 bool
	}{
		{0, 10, false},  // 低于最少人数
		{1, 10, false},  // 低于最少人数
		{2, 10, true},   // 正好达标
		{2, 100, false}, // 比例不足
		{20, 100, true},
		{0, 0, false}, // 零参与者
		{5, 0, false},
	}
	for _, c := range cases {
		evaluation := &model.Evaluation{VoterCount: c.voters, ParticipantCount: c.participants}
		if got := s.CanPublishRatingResults(evaluation); got != c.want {
			t.Fatalf("CanPublishRatingResults(voters=%d, participants=%d)=%v, want %v",
				c.voters, c.participants, got, c.want)
		}
	}
}

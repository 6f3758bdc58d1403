package service

import (
	"course_eval_backend/internal/model"
	"math"
	"testing"
)

func newResultsService(t *testing.T) *ResultsService {
	t.Helper()
	return NewResultsService(nil, nil, nil, testConfig())
}

func snapshotFor(evaluation *model.Evaluation, ratings map[answerPair][]int, texts []model.TextAnswer) *AnswerSnapshot {
	snap := &AnswerSnapshot{
		Ratings: make(map[answerPair][]int),
		Texts:   make(map[answerPair][]model.TextAnswer),
	}
	for key, values := range ratings {
		snap.Ratings[key] = values
	}
	for _, a := range texts {
		key := answerPair{a.ContributionID, a.QuestionID}
		snap.Texts[key] = append(snap.Texts[key], a)
	}
	return snap
}

func TestAggregateRatingDistribution(t *testing.T) {
	question := &model.Question{BaseModel: model.BaseModel{ID: 101}, Kind: model.KindLikert}
	rr := aggregateRating(question, "q", []int{1, 1, 5})

	if rr.CountSum != 3 {
		t.Fatalf("CountSum=%d, want 3", rr.CountSum)
	}
	if rr.Counts[1] != 2 || rr.Counts[5] != 1 {
		t.Fatalf("Counts=%v, want map[1:2 5:1]", rr.Counts)
	}
	if rr.Average == nil {
		t.Fatal("Average must be set when answers exist")
	}
	if math.Abs(*rr.Average-7.0/3.0) > 1e-9 {
		t.Fatalf("Average=%f, want %f", *rr.Average, 7.0/3.0)
	}
}

func TestAggregateRatingEmpty(t *testing.T) {
	question := &model.Question{BaseModel: model.BaseModel{ID: 101}, Kind: model.KindGrade}
	rr := aggregateRating(question, "q", nil)

	if rr.Average != nil {
		t.Fatalf("Average=%v, want nil for zero answers", *rr.Average)
	}
	if rr.CountSum != 0 || rr.HasAnswers() {
		t.Fatal("empty rating result must report no answers")
	}
}

func TestCollectResultsShape(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()

	snap := snapshotFor(evaluation, map[answerPair][]int{
		{1, 101}: {1, 1, 5},
		{2, 201}: {2, 2},
	}, []model.TextAnswer{*newTextAnswer("a1", 1, model.TextAnswerPublished)})

	result := s.collectResults(evaluation, snap, "en")

	if result.Name != "Algorithms" {
		t.Fatalf("Name=%q", result.Name)
	}
	if len(result.ContributionResults) != 2 {
		t.Fatalf("got %d contribution results, want 2", len(result.ContributionResults))
	}
	// 课程级贡献在前
	if !result.ContributionResults[0].IsGeneral {
		t.Fatal("general contribution must come first")
	}
	if result.ContributionResults[1].ContributorName == "" {
		t.Fatal("contributor name missing")
	}

	qr := result.ContributionResults[0].QuestionnaireResults[0]
	if len(qr.QuestionResults) != 3 {
		t.Fatalf("got %d question results, want heading+likert+text", len(qr.QuestionResults))
	}
	if _, ok := qr.QuestionResults[0].(*model.HeadingResult); !ok {
		t.Fatal("first result must be the heading")
	}
}

func TestCollectResultsGermanNames(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()

	result := s.collectResults(evaluation, snapshotFor(evaluation, nil, nil), "de")
	if result.Name != "Algorithmen" {
		t.Fatalf("Name=%q, want German variant", result.Name)
	}
	if result.ContributionResults[0].QuestionnaireResults[0].Name != "Allgemein" {
		t.Fatalf("questionnaire name=%q, want Allgemein", result.ContributionResults[0].QuestionnaireResults[0].Name)
	}
}

func TestCollectResultsUnknownKindPanics(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()
	evaluation.Contributions[0].Questionnaires[0].Questions[1].Kind = "ranking"

	defer func() {
		if recover() == nil {
			t.Fatal("unknown question kind must panic")
		}
	}()
	s.collectResults(evaluation, snapshotFor(evaluation, nil, nil), "en")
}

func TestGeneralContributionBelowContributorsOrdering(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()
	evaluation.Contributions[0].Questionnaires[0].IsBelowContributors = true

	result := s.collectResults(evaluation, snapshotFor(evaluation, nil, nil), "en")
	last := result.ContributionResults[len(result.ContributionResults)-1]
	if !last.IsGeneral {
		t.Fatal("general contribution with only below-contributors questionnaires must come last")
	}
}

func TestFilterForViewerPruning(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()

	// 只有文本答案；对陌生人全部不可见
	snap := snapshotFor(evaluation, nil, []model.TextAnswer{
		*newTextAnswer("a1", 1, model.TextAnswerPublished),
	})
	result := s.collectResults(evaluation, snap, "en")

	stranger := newUser(11, model.Student)
	s.FilterForViewer(result, evaluation, stranger, map[uint]bool{11: true}, ViewFull)

	// 问卷10只剩李克特结果：空文本被剪掉，标题因后面没有内容也被剪掉？
	// 标题后面还有李克特（无作答但保留），所以标题保留
	qr := result.ContributionResults[0].QuestionnaireResults[0]
	if len(qr.QuestionResults) != 2 {
		t.Fatalf("got %d question results, want heading+likert", len(qr.QuestionResults))
	}
	for _, res := range qr.QuestionResults {
		if tr, ok := res.(*model.TextResult); ok {
			t.Fatalf("empty text result must be pruned, got %+v", tr)
		}
	}
}

func TestFilterForViewerPrunesTrailingHeading(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()
	// 问卷10改为：李克特、标题、文本 —— 文本被过滤后标题悬空
	questions := evaluation.Contributions[0].Questionnaires[0].Questions
	questions[0], questions[1] = questions[1], questions[0]

	snap := snapshotFor(evaluation, nil, []model.TextAnswer{
		*newTextAnswer("a1", 1, model.TextAnswerPublished),
	})
	result := s.collectResults(evaluation, snap, "en")

	stranger := newUser(11, model.Student)
	s.FilterForViewer(result, evaluation, stranger, map[uint]bool{11: true}, ViewFull)

	qr := result.ContributionResults[0].QuestionnaireResults[0]
	if len(qr.QuestionResults) != 1 {
		t.Fatalf("got %d question results, want only the likert", len(qr.QuestionResults))
	}
	if _, ok := qr.QuestionResults[0].(*model.RatingResult); !ok {
		t.Fatal("surviving result must be the rating result")
	}
}

func TestFilterForViewerPrunesEmptyBranches(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()
	// 贡献者问卷只含文本题
	evaluation.Contributions[1].Questionnaires[0].Questions = []model.Question{
		{BaseModel: model.BaseModel{ID: 202}, Kind: model.KindText, TextEn: "Feedback"},
	}

	answer := newTextAnswer("a1", 2, model.TextAnswerPublished)
	answer.QuestionID = 202
	result := s.collectResults(evaluation, snapshotFor(evaluation, nil, []model.TextAnswer{*answer}), "en")

	if len(result.ContributionResults) != 2 {
		t.Fatalf("unfiltered tree must have 2 contribution results")
	}

	stranger := newUser(11, model.Student)
	s.FilterForViewer(result, evaluation, stranger, map[uint]bool{11: true}, ViewFull)

	// 贡献者分支整体被剪除
	if len(result.ContributionResults) != 1 {
		t.Fatalf("got %d contribution results, want 1", len(result.ContributionResults))
	}
	if !result.ContributionResults[0].IsGeneral {
		t.Fatal("surviving branch must be the general contribution")
	}

	// 而贡献者本人能看到自己的分支
	result = s.collectResults(evaluation, snapshotFor(evaluation, nil, []model.TextAnswer{*answer}), "en")
	contributor := newUser(7, model.Contributor)
	s.FilterForViewer(result, evaluation, contributor, map[uint]bool{7: true}, ViewFull)
	if len(result.ContributionResults) != 2 {
		t.Fatalf("contributor must keep their own branch, got %d", len(result.ContributionResults))
	}
}

func TestFilterForViewerPublicHidesAllText(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()

	snap := snapshotFor(evaluation, nil, []model.TextAnswer{
		*newTextAnswer("a1", 1, model.TextAnswerPublished),
	})
	result := s.collectResults(evaluation, snap, "en")

	staff := newUser(4, model.Staff)
	s.FilterForViewer(result, evaluation, staff, map[uint]bool{4: true}, ViewPublic)

	for _, cr := range result.ContributionResults {
		for _, qr := range cr.QuestionnaireResults {
			for _, res := range qr.QuestionResults {
				if _, ok := res.(*model.TextResult); ok {
					t.Fatal("public view must not contain any text results")
				}
			}
		}
	}
}

func TestFilterForViewerAuditReasons(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()

	snap := snapshotFor(evaluation, nil, []model.TextAnswer{
		*newTextAnswer("a1", 1, model.TextAnswerPublished),
	})

	// staff 拿到命中的规则名
	result := s.collectResults(evaluation, snap, "en")
	staff := newUser(4, model.Staff)
	s.FilterForViewer(result, evaluation, staff, map[uint]bool{4: true}, ViewFull)

	tr := findTextResult(t, result)
	if tr.Answers[0].VisibilityReason != "reviewer" {
		t.Fatalf("VisibilityReason=%q, want reviewer", tr.Answers[0].VisibilityReason)
	}

	// 非 staff 不拿审计信息
	result = s.collectResults(evaluation, snap, "en")
	reviewer := newUser(3, model.Reviewer)
	s.FilterForViewer(result, evaluation, reviewer, map[uint]bool{3: true}, ViewFull)
	tr = findTextResult(t, result)
	if tr.Answers[0].VisibilityReason != "" {
		t.Fatalf("VisibilityReason=%q, want empty for non-staff", tr.Answers[0].VisibilityReason)
	}
}

func findTextResult(t *testing.T, result *model.EvaluationResult) *model.TextResult {
	t.Helper()
	for _, cr := range result.ContributionResults {
		for _, qr := range cr.QuestionnaireResults {
			for _, res := range qr.QuestionResults {
				if tr, ok := res.(*model.TextResult); ok {
					return tr
				}
			}
		}
	}
	t.Fatal("no text result in tree")
	return nil
}

func TestAnnotateWarnings(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()

	// 问卷10在课程级贡献：20人作答；问卷20在贡献者分支：1人作答。
	// 阈值 = max(0.5*各自中位数, 4)；问卷20 MaxAnswers=1 < 4 → 警告
	snap := snapshotFor(evaluation, map[answerPair][]int{
		{1, 101}: manyAnswers(20, 2),
		{2, 201}: {3},
	}, nil)

	result := s.collectResults(evaluation, snap, "en")

	generalQR := result.ContributionResults[0].QuestionnaireResults[0]
	if generalQR.Warning {
		t.Fatal("questionnaire with 20 answers must not warn")
	}
	contributorQR := result.ContributionResults[1].QuestionnaireResults[0]
	if !contributorQR.Warning {
		t.Fatal("questionnaire with 1 answer must warn")
	}
	if contributorQR.MaxAnswers != 1 {
		t.Fatalf("MaxAnswers=%d, want 1", contributorQR.MaxAnswers)
	}

	// 警告下沉到评分结果
	rr, ok := contributorQR.QuestionResults[0].(*model.RatingResult)
	if !ok || !rr.Warning {
		t.Fatal("rating result in warned questionnaire must carry the warning")
	}
}

func TestAnnotateWarningsZeroAnswersNoWarning(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()

	result := s.collectResults(evaluation, snapshotFor(evaluation, nil, nil), "en")
	for _, cr := range result.ContributionResults {
		for _, qr := range cr.QuestionnaireResults {
			if qr.Warning {
				t.Fatal("zero answers must not produce a warning")
			}
		}
	}
}

func TestWarningThresholdMonotonicInWarningCount(t *testing.T) {
	evaluation := newEvaluation()
	snap := snapshotFor(evaluation, map[answerPair][]int{
		{1, 101}: manyAnswers(5, 2),
	}, nil)

	cfgLow := testConfig()
	cfgLow.Results.WarningCount = 4
	low := NewResultsService(nil, nil, nil, cfgLow)
	resultLow := low.collectResults(evaluation, snap, "en")

	cfgHigh := testConfig()
	cfgHigh.Results.WarningCount = 8
	high := NewResultsService(nil, nil, nil, cfgHigh)
	resultHigh := high.collectResults(evaluation, snap, "en")

	if resultLow.ContributionResults[0].QuestionnaireResults[0].Warning {
		t.Fatal("5 answers with warning count 4 must not warn")
	}
	if !resultHigh.ContributionResults[0].QuestionnaireResults[0].Warning {
		t.Fatal("5 answers with warning count 8 must warn")
	}
}

func manyAnswers(n, value int) []int {
	values := make([]int, n)
	for i := range values {
		values[i] = value
	}
	return values
}

func TestMedian(t *testing.T) {
	cases := []struct {
		values []int
		want   float64
	}{
		{nil, 0},
		{[]int{3}, 3},
		{[]int{1, 5}, 3},
		{[]int{5, 1, 3}, 3},
		{[]int{4, 1, 3, 2}, 2.5},
	}
	for _, c := range cases {
		if got := median(c.values); got != c.want {
			t.Fatalf("median(%v)=%f, want %f", c.values, got, c.want)
		}
	}
}

func TestSingleRatingResult(t *testing.T) {
	s := newResultsService(t)
	evaluation := newEvaluation()

	snap := snapshotFor(evaluation, map[answerPair][]int{
		{1, 101}: {2, 4},
	}, nil)
	result := s.collectResults(evaluation, snap, "en")

	rr := SingleRatingResult(result)
	if rr == nil || rr.QuestionID != 101 {
		t.Fatalf("SingleRatingResult=%+v, want question 101", rr)
	}
}

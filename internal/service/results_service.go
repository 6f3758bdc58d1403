package service

import (
	"course_eval_backend/internal/config"
	"course_eval_backend/internal/model"
	"course_eval_backend/internal/repository"
	"fmt"
	"sort"
	"sync"
)

// ResultsService 把一次评教的原始答案记录聚合为结果树：
// 评教 → 贡献 → 问卷 → 问题结果。聚合是对一次性拉取的
// 不可变快照的纯同步计算，每次调用重新构建，结果从不持久化。
type ResultsService struct {
	EvaluationRepo *repository.EvaluationRepository
	AnswerRepo     *repository.AnswerRepository
	UserRepo       *repository.UserRepository

	mu  sync.RWMutex
	cfg config.ResultsConfig
}

func NewResultsService(
	evaluationRepo *repository.EvaluationRepository,
	answerRepo *repository.AnswerRepository,
	userRepo *repository.UserRepository,
	cfg *config.Config,
) *ResultsService {
	return &ResultsService{
		EvaluationRepo: evaluationRepo,
		AnswerRepo:     answerRepo,
		UserRepo:       userRepo,
		cfg:            cfg.Results,
	}
}

// UpdateConfig 配置热加载回调，运行时调整告警阈值
func (s *ResultsService) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg.Results
	s.mu.Unlock()
}

func (s *ResultsService) resultsConfig() config.ResultsConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

type answerPair struct {
	contributionID uint
	questionID     uint
}

// AnswerSnapshot 一次评教全部答案的内存快照，聚合开始前一次性获取
type AnswerSnapshot struct {
	Ratings map[answerPair][]int
	Texts   map[answerPair][]model.TextAnswer
}

func buildSnapshot(ratings []model.RatingAnswer, texts []model.TextAnswer) *AnswerSnapshot {
	snap := &AnswerSnapshot{
		Ratings: make(map[answerPair][]int),
		Texts:   make(map[answerPair][]model.TextAnswer),
	}
	for _, a := range ratings {
		key := answerPair{a.ContributionID, a.QuestionID}
		snap.Ratings[key] = append(snap.Ratings[key], a.Answer)
	}
	// 文本答案保持数据库插入顺序
	for _, a := range texts {
		key := answerPair{a.ContributionID, a.QuestionID}
		snap.Texts[key] = append(snap.Texts[key], a)
	}
	return snap
}

// CollectResults 拉取答案快照并构建完整（未过滤）的结果树
func (s *ResultsService) CollectResults(evaluation *model.Evaluation) (*model.EvaluationResult, error) {
	ratings, err := s.AnswerRepo.RatingAnswersForEvaluation(evaluation.ID)
	if err != nil {
		return nil, err
	}
	texts, err := s.AnswerRepo.TextAnswersForEvaluation(evaluation.ID)
	if err != nil {
		return nil, err
	}
	return s.collectResults(evaluation, buildSnapshot(ratings, texts), "en"), nil
}

// CollectResultsForLanguage 同 CollectResults，问题/问卷文案使用给定语言
func (s *ResultsService) CollectResultsForLanguage(evaluation *model.Evaluation, lang string) (*model.EvaluationResult, error) {
	ratings, err := s.AnswerRepo.RatingAnswersForEvaluation(evaluation.ID)
	if err != nil {
		return nil, err
	}
	texts, err := s.AnswerRepo.TextAnswersForEvaluation(evaluation.ID)
	if err != nil {
		return nil, err
	}
	return s.collectResults(evaluation, buildSnapshot(ratings, texts), lang), nil
}

// collectResults 纯聚合：快照 → 结果树。问题类型集合是封闭的，
// 未知类型属于编程错误，直接 panic 而不是按行跳过。
func (s *ResultsService) collectResults(evaluation *model.Evaluation, snap *AnswerSnapshot, lang string) *model.EvaluationResult {
	result := &model.EvaluationResult{
		EvaluationID:     evaluation.ID,
		Name:             evaluation.Name(lang),
		State:            evaluation.State,
		ParticipantCount: evaluation.ParticipantCount,
		VoterCount:       evaluation.VoterCount,
	}

	for _, contribution := range orderedContributions(evaluation) {
		cr := &model.ContributionResult{
			ContributionID: contribution.ID,
			ContributorID:  contribution.ContributorID,
			IsGeneral:      contribution.IsGeneral(),
		}
		if contribution.Contributor != nil {
			cr.ContributorName = contribution.Contributor.Name
		}

		for _, questionnaire := range orderedQuestionnaires(contribution) {
			qr := &model.QuestionnaireResult{
				QuestionnaireID: questionnaire.ID,
				Name:            questionnaire.PublicName(lang),
			}

			for i := range questionnaire.Questions {
				question := &questionnaire.Questions[i]
				key := answerPair{contribution.ID, question.ID}

				switch question.Kind {
				case model.KindLikert, model.KindGrade, model.KindYesNo:
					qr.QuestionResults = append(qr.QuestionResults,
						aggregateRating(question, question.Text(lang), snap.Ratings[key]))
				case model.KindText:
					qr.QuestionResults = append(qr.QuestionResults,
						collectText(question, question.Text(lang), snap.Texts[key]))
				case model.KindHeading:
					qr.QuestionResults = append(qr.QuestionResults, &model.HeadingResult{
						QuestionID: question.ID,
						Kind:       model.KindHeading,
						Text:       question.Text(lang),
					})
				default:
					panic(fmt.Sprintf("unknown question kind %q (question %d)", question.Kind, question.ID))
				}
			}

			cr.QuestionnaireResults = append(cr.QuestionnaireResults, qr)
		}

		result.ContributionResults = append(result.ContributionResults, cr)
	}

	s.annotateWarnings(result)

	return result
}

// aggregateRating 统计每个刻度值出现的次数并计算加权平均。
// 无人作答时 Average 为 nil，下游据此不渲染柱状条。
func aggregateRating(question *model.Question, text string, values []int) *model.RatingResult {
	rr := &model.RatingResult{
		QuestionID: question.ID,
		Kind:       question.Kind,
		Text:       text,
		Counts:     make(map[int]int),
	}

	sum := 0
	for _, v := range values {
		rr.Counts[v]++
		rr.CountSum++
		sum += v
	}

	if rr.CountSum > 0 {
		avg := float64(sum) / float64(rr.CountSum)
		rr.Average = &avg
	}

	return rr
}

func collectText(question *model.Question, text string, answers []model.TextAnswer) *model.TextResult {
	tr := &model.TextResult{
		QuestionID: question.ID,
		Kind:       model.KindText,
		Text:       text,
		Answers:    make([]model.TextAnswerView, 0, len(answers)),
	}
	for i := range answers {
		a := &answers[i]
		tr.Answers = append(tr.Answers, model.TextAnswerView{
			ID:        a.ID,
			Answer:    a.EffectiveAnswer(),
			IsPrivate: a.IsPrivate(),
			State:     a.State,
		})
	}
	return tr
}

// orderedContributions 课程级贡献排在最前，除非其问卷全部标记为
// “贡献者区块之后”，此时排在最后；其余贡献按 order 字段排序
func orderedContributions(evaluation *model.Evaluation) []model.Contribution {
	contributions := make([]model.Contribution, len(evaluation.Contributions))
	copy(contributions, evaluation.Contributions)

	sort.SliceStable(contributions, func(i, j int) bool {
		return contributionSortKey(&contributions[i]) < contributionSortKey(&contributions[j])
	})
	return contributions
}

func contributionSortKey(c *model.Contribution) int {
	if c.IsGeneral() {
		if generalBelowContributors(c) {
			return 1 << 20
		}
		return -(1 << 20)
	}
	return c.Order
}

func generalBelowContributors(c *model.Contribution) bool {
	if len(c.Questionnaires) == 0 {
		return false
	}
	for i := range c.Questionnaires {
		if !c.Questionnaires[i].IsBelowContributors {
			return false
		}
	}
	return true
}

// orderedQuestionnaires 按 (below-contributors, index) 排序；
// 课程级贡献里排在贡献者之后的问卷放在最后
func orderedQuestionnaires(c model.Contribution) []model.Questionnaire {
	questionnaires := make([]model.Questionnaire, len(c.Questionnaires))
	copy(questionnaires, c.Questionnaires)

	sort.SliceStable(questionnaires, func(i, j int) bool {
		qi, qj := &questionnaires[i], &questionnaires[j]
		if qi.IsBelowContributors != qj.IsBelowContributors {
			return !qi.IsBelowContributors
		}
		return qi.Index < qj.Index
	})
	return questionnaires
}

// annotateWarnings 低作答数告警。阈值基于同一问卷在该评教内
// 各结果 max_answers 的中位数：max(WarningPercentage*median, WarningCount)。
// 无人作答的结果不告警（不作答本身不是告警条件）。
func (s *ResultsService) annotateWarnings(result *model.EvaluationResult) {
	cfg := s.resultsConfig()

	maxAnswersByQuestionnaire := make(map[uint][]int)

	for _, cr := range result.ContributionResults {
		for _, qr := range cr.QuestionnaireResults {
			qr.MaxAnswers = 0
			for _, res := range qr.QuestionResults {
				if rr, ok := res.(*model.RatingResult); ok && rr.CountSum > qr.MaxAnswers {
					qr.MaxAnswers = rr.CountSum
				}
			}
			maxAnswersByQuestionnaire[qr.QuestionnaireID] = append(
				maxAnswersByQuestionnaire[qr.QuestionnaireID], qr.MaxAnswers)
		}
	}

	thresholds := make(map[uint]float64, len(maxAnswersByQuestionnaire))
	for questionnaireID, maxAnswers := range maxAnswersByQuestionnaire {
		threshold := cfg.WarningPercentage * median(maxAnswers)
		if float64(cfg.WarningCount) > threshold {
			threshold = float64(cfg.WarningCount)
		}
		thresholds[questionnaireID] = threshold
	}

	for _, cr := range result.ContributionResults {
		for _, qr := range cr.QuestionnaireResults {
			threshold := thresholds[qr.QuestionnaireID]
			qr.Warning = qr.MaxAnswers > 0 && float64(qr.MaxAnswers) < threshold

			for _, res := range qr.QuestionResults {
				if rr, ok := res.(*model.RatingResult); ok {
					rr.Warning = qr.Warning ||
						(rr.HasAnswers() && float64(rr.CountSum) < threshold)
				}
			}
		}
	}
}

func median(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

// FilterForViewer 按查看者过滤文本答案并剪除空分支，产出渲染用的
// “可见形状”。依赖查看者身份，必须逐查看者重新计算。
func (s *ResultsService) FilterForViewer(
	result *model.EvaluationResult,
	evaluation *model.Evaluation,
	viewer *model.User,
	representedIDs map[uint]bool,
	mode ViewMode,
) {
	auditReasons := viewer != nil && viewer.IsStaff()

	for _, cr := range result.ContributionResults {
		contribution := findContribution(evaluation, cr.ContributionID)

		for _, qr := range cr.QuestionnaireResults {
			// 规则1：过滤文本答案，无可见答案的 TextResult 随后被剪除
			for _, res := range qr.QuestionResults {
				tr, ok := res.(*model.TextResult)
				if !ok {
					continue
				}
				visible := tr.Answers[:0]
				if contribution == nil {
					// 不应发生；缺失贡献上下文时一律不可见
					tr.Answers = visible
					continue
				}
				for _, view := range tr.Answers {
					answer := model.TextAnswer{
						UUIDBase:       model.UUIDBase{ID: view.ID},
						ContributionID: cr.ContributionID,
						State:          view.State,
					}
					ok, reason := CanSeeTextAnswer(viewer, representedIDs, &answer, contribution, evaluation, mode)
					if !ok {
						continue
					}
					if auditReasons {
						view.VisibilityReason = reason
					}
					visible = append(visible, view)
				}
				tr.Answers = visible
			}

			qr.QuestionResults = pruneQuestionResults(qr.QuestionResults)
		}

		// 规则3：剪除没有剩余问题结果的问卷结果
		kept := cr.QuestionnaireResults[:0]
		for _, qr := range cr.QuestionnaireResults {
			if len(qr.QuestionResults) > 0 {
				kept = append(kept, qr)
			}
		}
		cr.QuestionnaireResults = kept
	}

	// 规则4：剪除没有剩余问卷结果的贡献结果
	kept := result.ContributionResults[:0]
	for _, cr := range result.ContributionResults {
		if len(cr.QuestionnaireResults) > 0 {
			kept = append(kept, cr)
		}
	}
	result.ContributionResults = kept
}

// pruneQuestionResults 剪除空 TextResult 和孤立的标题：
// 标题后面必须跟一个可见的非标题结果。倒序遍历使级联剪除一趟完成。
func pruneQuestionResults(results []model.QuestionResult) []model.QuestionResult {
	pruned := make([]model.QuestionResult, len(results))
	copy(pruned, results)

	for i := len(pruned) - 1; i >= 0; i-- {
		switch res := pruned[i].(type) {
		case *model.TextResult:
			if len(res.Answers) == 0 {
				pruned = append(pruned[:i], pruned[i+1:]...)
			}
		case *model.HeadingResult:
			last := i == len(pruned)-1
			if last || isHeading(pruned[i+1]) {
				pruned = append(pruned[:i], pruned[i+1:]...)
			}
		}
	}
	return pruned
}

func isHeading(res model.QuestionResult) bool {
	_, ok := res.(*model.HeadingResult)
	return ok
}

func findContribution(evaluation *model.Evaluation, contributionID uint) *model.Contribution {
	for i := range evaluation.Contributions {
		if evaluation.Contributions[i].ID == contributionID {
			return &evaluation.Contributions[i]
		}
	}
	return nil
}

// SingleRatingResult 单一结果评教直接暴露唯一问题的评分结果，
// 不经过总评分聚合
func SingleRatingResult(result *model.EvaluationResult) *model.RatingResult {
	for _, cr := range result.ContributionResults {
		for _, qr := range cr.QuestionnaireResults {
			for _, res := range qr.QuestionResults {
				if rr, ok := res.(*model.RatingResult); ok {
					return rr
				}
			}
		}
	}
	return nil
}

// RepresentedIDsForViewer 拉取委托关系并构造 represented 集合
func (s *ResultsService) RepresentedIDsForViewer(viewer *model.User) (map[uint]bool, error) {
	if viewer == nil {
		return map[uint]bool{}, nil
	}
	represented, err := s.UserRepo.FindRepresentedUsers(viewer.ID)
	if err != nil {
		return nil, err
	}
	return RepresentedIDs(viewer, represented), nil
}

package service

import (
	"context"
	"course_eval_backend/internal/config"
	"course_eval_backend/internal/model"
	"course_eval_backend/pkg/logger"
	"course_eval_backend/pkg/monitoring"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const resultsCachePrefix = "results:"

// ResultCollector 缓存重建用到的结果树构建入口
type ResultCollector interface {
	CollectResultsForLanguage(evaluation *model.Evaluation, lang string) (*model.EvaluationResult, error)
}

// PublishedSource 全量重建时的已发布评教来源
type PublishedSource interface {
	FindPublished() ([]model.Evaluation, error)
}

// ResultsCacheService 维护按 (评教, 语言, 可见性) 键控的派生数据缓存。
// 评教进入 published 时写入 4 个条目（2 种语言 × 2 种可见性），
// 离开 published 时删除这 4 个条目；未发布评教的条目不允许存在。
type ResultsCacheService struct {
	Store     ResultStore
	Results   ResultCollector
	Grades    *GradeService
	Published PublishedSource

	mu  sync.RWMutex
	cfg config.ResultsConfig
}

func NewResultsCacheService(
	store ResultStore,
	results ResultCollector,
	grades *GradeService,
	published PublishedSource,
	cfg *config.Config,
) *ResultsCacheService {
	return &ResultsCacheService{
		Store:     store,
		Results:   results,
		Grades:    grades,
		Published: published,
		cfg:       cfg.Results,
	}
}

func (s *ResultsCacheService) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg.Results
	s.mu.Unlock()
}

func (s *ResultsCacheService) languages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Languages
}

func CacheKey(evaluationID uint, lang string, canSeeResults bool) string {
	return fmt.Sprintf("%s%d:%s:%t", resultsCachePrefix, evaluationID, lang, canSeeResults)
}

// indexPayload 索引页使用的、与具体查看者无关的渲染载荷。
// 字段顺序固定，序列化结果字节级确定，保证批量重建幂等。
type indexPayload struct {
	EvaluationID     uint                  `json:"evaluationId"`
	Name             string                `json:"name"`
	State            model.EvaluationState `json:"state"`
	ParticipantCount int                   `json:"participantCount"`
	VoterCount       int                   `json:"voterCount"`
	IsSingleResult   bool                  `json:"isSingleResult"`

	AvgGrade     *float64            `json:"avgGrade,omitempty"`
	AvgDeviation *float64            `json:"avgDeviation,omitempty"`
	SingleRating *model.RatingResult `json:"singleRating,omitempty"`
}

// renderPayload 渲染一个 (语言, 可见性) 组合的载荷。
// canSeeResults=false 的变体不包含评分数据。
func (s *ResultsCacheService) renderPayload(evaluation *model.Evaluation, result *model.EvaluationResult, canSeeResults bool) (string, error) {
	payload := indexPayload{
		EvaluationID:     evaluation.ID,
		Name:             result.Name,
		State:            evaluation.State,
		ParticipantCount: evaluation.ParticipantCount,
		VoterCount:       evaluation.VoterCount,
		IsSingleResult:   evaluation.IsSingleResult,
	}

	if canSeeResults {
		if evaluation.IsSingleResult {
			payload.SingleRating = SingleRatingResult(result)
		} else {
			payload.AvgGrade, payload.AvgDeviation = s.Grades.AverageGradeAndDeviation(result)
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CacheResults 为一个已发布的评教写入全部 4 个缓存条目。
// 对未发布评教调用属于编程错误。
func (s *ResultsCacheService) CacheResults(ctx context.Context, evaluation *model.Evaluation) error {
	if !evaluation.IsPublished() {
		panic(fmt.Sprintf("caching results for unpublished evaluation %d (state %s)", evaluation.ID, evaluation.State))
	}

	for _, lang := range s.languages() {
		result, err := s.Results.CollectResultsForLanguage(evaluation, lang)
		if err != nil {
			return err
		}
		for _, canSee := range []bool{true, false} {
			payload, err := s.renderPayload(evaluation, result, canSee)
			if err != nil {
				return err
			}
			if err := s.Store.Set(ctx, CacheKey(evaluation.ID, lang, canSee), payload); err != nil {
				return err
			}
		}
	}

	monitoring.ResultsCacheRefreshes.Inc()
	return nil
}

// DeleteResults 评教离开 published 状态时删除其全部缓存条目。
// 评教仍处于 published 时调用属于编程错误，必须大声失败而不是静默跳过。
func (s *ResultsCacheService) DeleteResults(ctx context.Context, evaluation *model.Evaluation) error {
	if evaluation.IsPublished() {
		panic(fmt.Sprintf("deleting results cache for still-published evaluation %d", evaluation.ID))
	}

	keys := make([]string, 0, 4)
	for _, lang := range s.languages() {
		for _, canSee := range []bool{true, false} {
			keys = append(keys, CacheKey(evaluation.ID, lang, canSee))
		}
	}
	return s.Store.Delete(ctx, keys...)
}

// OnEvaluationStateChanged 工作流状态转换后的通知回调。
// 缓存逻辑与状态机本身解耦：状态机只负责发通知。
func (s *ResultsCacheService) OnEvaluationStateChanged(ctx context.Context, evaluation *model.Evaluation, from, to model.EvaluationState) {
	switch {
	case to == model.StatePublished:
		if err := s.CacheResults(ctx, evaluation); err != nil {
			logger.Log.Error("failed to cache results on publish",
				zap.Uint("evaluationId", evaluation.ID), zap.Error(err))
		}
	case from == model.StatePublished:
		if err := s.DeleteResults(ctx, evaluation); err != nil {
			logger.Log.Error("failed to delete results cache on revoke",
				zap.Uint("evaluationId", evaluation.ID), zap.Error(err))
		}
	}
}

// RefreshAll 清空并重建所有已发布评教的缓存。幂等、可安全重跑：
// 进程在批次中途被打断只会留下缺失条目，重跑一遍即可修复。
func (s *ResultsCacheService) RefreshAll(ctx context.Context) (int, error) {
	if err := s.Store.DeleteByPrefix(ctx, resultsCachePrefix); err != nil {
		return 0, err
	}

	evaluations, err := s.Published.FindPublished()
	if err != nil {
		return 0, err
	}

	for i := range evaluations {
		if err := s.CacheResults(ctx, &evaluations[i]); err != nil {
			return i, err
		}
	}
	return len(evaluations), nil
}

// IndexPayloads 索引页的批量读路径。已发布评教出现缓存缺失
// 属于一致性缺陷：记录错误并降级为空载荷，页面渲染不中断
// （可用性优先于完整性）。
func (s *ResultsCacheService) IndexPayloads(ctx context.Context, evaluationIDs []uint, lang string, canSeeResults bool) ([]json.RawMessage, error) {
	keys := make([]string, len(evaluationIDs))
	for i, id := range evaluationIDs {
		keys[i] = CacheKey(id, lang, canSeeResults)
	}

	values, err := s.Store.MGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	payloads := make([]json.RawMessage, 0, len(values))
	for i, value := range values {
		if value == nil {
			monitoring.ResultsCacheMisses.Inc()
			logger.Log.Error("results cache miss for published evaluation",
				zap.Uint("evaluationId", evaluationIDs[i]), zap.String("lang", lang))
			payloads = append(payloads, json.RawMessage(`{}`))
			continue
		}
		monitoring.ResultsCacheHits.Inc()
		payloads = append(payloads, json.RawMessage(*value))
	}
	return payloads, nil
}

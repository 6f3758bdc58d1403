package service

import (
	"context"
	"course_eval_backend/internal/model"
	"encoding/json"
	"reflect"
	"testing"
)

// fixtureCollector 绕过数据库，用固定快照驱动真实的结果树构建
type fixtureCollector struct {
	results *ResultsService
	snap    *AnswerSnapshot
}

func (f *fixtureCollector) CollectResultsForLanguage(evaluation *model.Evaluation, lang string) (*model.EvaluationResult, error) {
	return f.results.collectResults(evaluation, f.snap, lang), nil
}

type staticPublished struct {
	evaluations []model.Evaluation
}

func (p *staticPublished) FindPublished() ([]model.Evaluation, error) {
	return p.evaluations, nil
}

func newCacheFixture(t *testing.T, published ...model.Evaluation) (*ResultsCacheService, *MemoryResultStore) {
	t.Helper()
	cfg := testConfig()
	results := NewResultsService(nil, nil, nil, cfg)
	snap := snapshotFor(newEvaluation(), map[answerPair][]int{
		{1, 101}: {1, 2, 3},
		{2, 201}: {2, 2},
	}, nil)

	store := NewMemoryResultStore()
	cache := NewResultsCacheService(
		store,
		&fixtureCollector{results: results, snap: snap},
		NewGradeService(cfg),
		&staticPublished{evaluations: published},
		cfg,
	)
	return cache, store
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey(42, "de", true); got != "results:42:de:true" {
		t.Fatalf("CacheKey=%q", got)
	}
	if got := CacheKey(42, "en", false); got != "results:42:en:false" {
		t.Fatalf("CacheKey=%q", got)
	}
}

func TestCacheResultsWritesFourEntries(t *testing.T) {
	cache, store := newCacheFixture(t)
	evaluation := newEvaluation()

	if err := cache.CacheResults(context.Background(), evaluation); err != nil {
		t.Fatalf("CacheResults: %v", err)
	}

	want := []string{
		"results:1:de:false",
		"results:1:de:true",
		"results:1:en:false",
		"results:1:en:true",
	}
	if got := store.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys=%v, want %v", got, want)
	}

	// 可见变体带总评分，不可见变体不带
	visible, _, _ := store.Get(context.Background(), "results:1:en:true")
	restricted, _, _ := store.Get(context.Background(), "results:1:en:false")

	var visiblePayload, restrictedPayload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(visible), &visiblePayload); err != nil {
		t.Fatalf("unmarshal visible payload: %v", err)
	}
	if err := json.Unmarshal([]byte(restricted), &restrictedPayload); err != nil {
		t.Fatalf("unmarshal restricted payload: %v", err)
	}
	if _, ok := visiblePayload["avgGrade"]; !ok {
		t.Fatal("visible payload must contain avgGrade")
	}
	if _, ok := restrictedPayload["avgGrade"]; ok {
		t.Fatal("restricted payload must not contain avgGrade")
	}
}

func TestCacheResultsSingleResult(t *testing.T) {
	cache, store := newCacheFixture(t)
	evaluation := newEvaluation()
	evaluation.IsSingleResult = true

	if err := cache.CacheResults(context.Background(), evaluation); err != nil {
		t.Fatalf("CacheResults: %v", err)
	}

	payload, _, _ := store.Get(context.Background(), "results:1:en:true")
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["singleRating"]; !ok {
		t.Fatal("single-result payload must expose the rating distribution")
	}
	if _, ok := decoded["avgGrade"]; ok {
		t.Fatal("single-result payload must not carry an aggregated grade")
	}
}

func TestCacheResultsPanicsForUnpublished(t *testing.T) {
	cache, _ := newCacheFixture(t)
	evaluation := newEvaluation()
	evaluation.State = model.StateReviewed

	defer func() {
		if recover() == nil {
			t.Fatal("caching an unpublished evaluation must panic")
		}
	}()
	cache.CacheResults(context.Background(), evaluation)
}

func TestDeleteResultsPanicsWhilePublished(t *testing.T) {
	cache, _ := newCacheFixture(t)
	evaluation := newEvaluation()

	defer func() {
		if recover() == nil {
			t.Fatal("deleting cache entries of a published evaluation must panic")
		}
	}()
	cache.DeleteResults(context.Background(), evaluation)
}

func TestStateChangeHookLifecycle(t *testing.T) {
	cache, store := newCacheFixture(t)
	ctx := context.Background()
	evaluation := newEvaluation()

	// reviewed → published：写入缓存
	cache.OnEvaluationStateChanged(ctx, evaluation, model.StateReviewed, model.StatePublished)
	if len(store.Keys()) != 4 {
		t.Fatalf("publish must create 4 entries, got %v", store.Keys())
	}

	// published → reviewed：删除缓存
	evaluation.State = model.StateReviewed
	cache.OnEvaluationStateChanged(ctx, evaluation, model.StatePublished, model.StateReviewed)
	if len(store.Keys()) != 0 {
		t.Fatalf("revoke must remove all entries, got %v", store.Keys())
	}

	// 其他转换不碰缓存
	cache.OnEvaluationStateChanged(ctx, evaluation, model.StateEvaluated, model.StateReviewed)
	if len(store.Keys()) != 0 {
		t.Fatal("unrelated transitions must not touch the cache")
	}
}

func TestRefreshAllIdempotent(t *testing.T) {
	published := *newEvaluation()
	cache, store := newCacheFixture(t, published)
	ctx := context.Background()

	// 预置一个孤儿条目，重建时必须被清掉
	store.Set(ctx, "results:999:en:true", `{"stale":true}`)

	count, err := cache.RefreshAll(ctx)
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if count != 1 {
		t.Fatalf("refreshed %d evaluations, want 1", count)
	}
	first := dump(t, store)
	if _, ok := first["results:999:en:true"]; ok {
		t.Fatal("stale entry must be removed by the prefix clear")
	}

	// 再跑一遍：键集合与载荷字节级一致
	if _, err := cache.RefreshAll(ctx); err != nil {
		t.Fatalf("second RefreshAll: %v", err)
	}
	second := dump(t, store)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("refresh is not idempotent:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func dump(t *testing.T, store *MemoryResultStore) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, key := range store.Keys() {
		val, ok, err := store.Get(context.Background(), key)
		if err != nil || !ok {
			t.Fatalf("dump %s: ok=%v err=%v", key, ok, err)
		}
		out[key] = val
	}
	return out
}

func TestIndexPayloadsDegradesOnMiss(t *testing.T) {
	cache, _ := newCacheFixture(t)
	ctx := context.Background()
	evaluation := newEvaluation()

	if err := cache.CacheResults(ctx, evaluation); err != nil {
		t.Fatalf("CacheResults: %v", err)
	}

	// 评教2从未被缓存：缺失条目降级为空载荷，不报错
	payloads, err := cache.IndexPayloads(ctx, []uint{1, 2}, "en", true)
	if err != nil {
		t.Fatalf("IndexPayloads: %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("got %d payloads, want 2", len(payloads))
	}
	if string(payloads[1]) != "{}" {
		t.Fatalf("missing entry must degrade to empty payload, got %s", payloads[1])
	}

	var decoded struct {
		EvaluationID uint `json:"evaluationId"`
	}
	if err := json.Unmarshal(payloads[0], &decoded); err != nil || decoded.EvaluationID != 1 {
		t.Fatalf("cached payload corrupt: %s", payloads[0])
	}
}

func TestCachedPayloadMatchesLiveRender(t *testing.T) {
	cache, store := newCacheFixture(t)
	ctx := context.Background()
	evaluation := newEvaluation()

	if err := cache.CacheResults(ctx, evaluation); err != nil {
		t.Fatalf("CacheResults: %v", err)
	}

	result, err := cache.Results.CollectResultsForLanguage(evaluation, "en")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	live, err := cache.renderPayload(evaluation, result, true)
	if err != nil {
		t.Fatalf("renderPayload: %v", err)
	}

	cached, ok, _ := store.Get(ctx, CacheKey(1, "en", true))
	if !ok {
		t.Fatal("cache entry missing")
	}
	if cached != live {
		t.Fatalf("cached payload diverges from live render:\ncached: %s\nlive:   %s", cached, live)
	}
}

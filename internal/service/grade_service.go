package service

import (
	"course_eval_backend/internal/config"
	"course_eval_backend/internal/model"
	"math"
	"sync"
)

// GradeService 计算一次评教的总评分与离散度。
// 总评分公式（GP = GradePercentage，CP = ContributionPercentage）：
//
//	final_likert = CP*likert_persons + (1-CP)*likert_course
//	final_grade  = CP*grade_persons  + (1-CP)*grade_course
//	final        = GP*final_grade + (1-GP)*final_likert
//
// 某一分量没有作答时，它的权重转移给另一分量。
type GradeService struct {
	mu  sync.RWMutex
	cfg config.ResultsConfig
}

func NewGradeService(cfg *config.Config) *GradeService {
	return &GradeService{cfg: cfg.Results}
}

func (s *GradeService) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg.Results
	s.mu.Unlock()
}

func (s *GradeService) resultsConfig() config.ResultsConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// gradeBucket 聚合一个 (题型, 人/课程) 分量下所有计分问题的均值
type gradeBucket struct {
	weightedSum float64
	weight      float64
	means       []float64
}

func (b *gradeBucket) add(rr *model.RatingResult) {
	if rr.Average == nil {
		return
	}
	b.weightedSum += *rr.Average * float64(rr.CountSum)
	b.weight += float64(rr.CountSum)
	b.means = append(b.means, *rr.Average)
}

func (b *gradeBucket) mean() (float64, bool) {
	if b.weight == 0 {
		return 0, false
	}
	return b.weightedSum / b.weight, true
}

// AverageGradeAndDeviation 计算总评分与每题均值的标准差。
// 没有任何计分答案时两者都为 nil（缺失均值表示“无柱可画”，不是 0）。
// 单一结果评教不走该公式，直接暴露唯一问题的评分结果。
func (s *GradeService) AverageGradeAndDeviation(result *model.EvaluationResult) (*float64, *float64) {
	cfg := s.resultsConfig()

	var likertPersons, likertCourse, gradePersons, gradeCourse gradeBucket
	var contributingMeans []float64

	for _, cr := range result.ContributionResults {
		for _, qr := range cr.QuestionnaireResults {
			for _, res := range qr.QuestionResults {
				rr, ok := res.(*model.RatingResult)
				if !ok || rr.Average == nil {
					continue
				}

				switch rr.Kind {
				case model.KindLikert:
					if cr.IsGeneral {
						likertCourse.add(rr)
					} else {
						likertPersons.add(rr)
					}
				case model.KindGrade:
					if cr.IsGeneral {
						gradeCourse.add(rr)
					} else {
						gradePersons.add(rr)
					}
				default:
					// YesNo 不计入总评分
					continue
				}
				contributingMeans = append(contributingMeans, *rr.Average)
			}
		}
	}

	finalLikert, likertOK := combine(&likertPersons, &likertCourse, cfg.ContributionPercentage)
	finalGrade, gradeOK := combine(&gradePersons, &gradeCourse, cfg.ContributionPercentage)

	var final float64
	switch {
	case likertOK && gradeOK:
		final = cfg.GradePercentage*finalGrade + (1-cfg.GradePercentage)*finalLikert
	case gradeOK:
		final = finalGrade
	case likertOK:
		final = finalLikert
	default:
		return nil, nil
	}

	deviation := stddev(contributingMeans)
	return &final, &deviation
}

// combine 按 CP 合并人/课程两个分量；缺失的分量权重归零
func combine(persons, course *gradeBucket, cp float64) (float64, bool) {
	pm, pOK := persons.mean()
	cm, cOK := course.mean()

	switch {
	case pOK && cOK:
		return cp*pm + (1-cp)*cm, true
	case pOK:
		return pm, true
	case cOK:
		return cm, true
	default:
		return 0, false
	}
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}

// CanPublishRatingResults 发布评分结果的最少作答门槛
func (s *GradeService) CanPublishRatingResults(evaluation *model.Evaluation) bool {
	cfg := s.resultsConfig()

	if evaluation.VoterCount < cfg.MinAnswerCount {
		return false
	}
	if evaluation.ParticipantCount == 0 {
		return false
	}
	return float64(evaluation.VoterCount)/float64(evaluation.ParticipantCount) >= cfg.MinAnswerPercentage
}

package model

// 聚合结果类型。每次聚合调用重新构建，从不持久化；
// 唯一落盘的是按 (评教, 语言, 可见性) 缓存的渲染载荷。

// QuestionResult 按问题类型封闭的结果变体：RatingResult / TextResult / HeadingResult
type QuestionResult interface {
	questionResult()
}

// RatingResult 一道评分题（Likert/Grade/YesNo）的数值分布
type RatingResult struct {
	QuestionID uint         `json:"questionId"`
	Kind       QuestionKind `json:"kind"`
	Text       string       `json:"text"`

	// Counts 每个刻度值出现的次数
	Counts   map[int]int `json:"counts"`
	CountSum int         `json:"countSum"`

	// Average 无人作答时为 nil，渲染层据此不画柱状条
	Average *float64 `json:"average"`

	Warning bool `json:"warning"`
}

func (*RatingResult) questionResult() {}

func (r *RatingResult) HasAnswers() bool {
	return r.CountSum > 0
}

// TextAnswerView 对某个查看者可见的一条文本答案
type TextAnswerView struct {
	ID     string `json:"id"`
	Answer string `json:"answer"`

	IsPrivate bool `json:"isPrivate"`
	// State 仅供可见性过滤使用，不随结果输出
	State TextAnswerState `json:"-"`
	// VisibilityReason 命中的可见性规则名，供 staff 审计
	VisibilityReason string `json:"visibilityReason,omitempty"`
}

// TextResult 一道文本题经可见性过滤后的答案集合
type TextResult struct {
	QuestionID uint         `json:"questionId"`
	Kind       QuestionKind `json:"kind"`
	Text       string       `json:"text"`

	Answers []TextAnswerView `json:"answers"`
}

func (*TextResult) questionResult() {}

// HeadingResult 小节标题，后面必须跟一个可见的非标题结果，否则会被剪除
type HeadingResult struct {
	QuestionID uint         `json:"questionId"`
	Kind       QuestionKind `json:"kind"`
	Text       string       `json:"text"`
}

func (*HeadingResult) questionResult() {}

// QuestionnaireResult 一个贡献下一份问卷的全部问题结果
type QuestionnaireResult struct {
	QuestionnaireID uint   `json:"questionnaireId"`
	Name            string `json:"name"`

	QuestionResults []QuestionResult `json:"questionResults"`

	// MaxAnswers 问卷内评分题结果的最大作答数，低于阈值时置警告
	MaxAnswers int  `json:"maxAnswers"`
	Warning    bool `json:"warning"`
}

// ContributionResult 一位贡献者（或课程整体）的全部问卷结果
type ContributionResult struct {
	ContributionID  uint   `json:"contributionId"`
	ContributorID   *uint  `json:"contributorId"`
	ContributorName string `json:"contributorName,omitempty"`
	IsGeneral       bool   `json:"isGeneral"`

	QuestionnaireResults []*QuestionnaireResult `json:"questionnaireResults"`
}

// EvaluationResult 一次评教的完整结果树
type EvaluationResult struct {
	EvaluationID uint            `json:"evaluationId"`
	Name         string          `json:"name"`
	State        EvaluationState `json:"state"`

	ParticipantCount int `json:"participantCount"`
	VoterCount       int `json:"voterCount"`

	AvgGrade     *float64 `json:"avgGrade"`
	AvgDeviation *float64 `json:"avgDeviation"`

	ContributionResults []*ContributionResult `json:"contributionResults"`
}

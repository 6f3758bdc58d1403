package service

import (
	"course_eval_backend/internal/model"
)

// ViewMode 结果页的查看模式
type ViewMode string

const (
	// ViewPublic 公开视图：不展示任何文本答案
	ViewPublic ViewMode = "public"
	// ViewFull 本人视图：按角色与代理关系过滤
	ViewFull ViewMode = "full"
	// ViewExport 导出：只含本人相关、非私密的内容
	ViewExport ViewMode = "export"
)

// 可见性决策是自由文本评论的安全边界。实现为按顺序求值、
// 首个命中即返回的规则链，而不是散落的条件判断，保证可审计、可单测。
// 未知状态一律不可见（fail closed）。

type visibilityInput struct {
	viewer       *model.User
	represented  map[uint]bool
	answer       *model.TextAnswer
	contribution *model.Contribution
	evaluation   *model.Evaluation
	mode         ViewMode
}

// visibilityRule 返回 (visible, matched)；matched 为 false 时继续下一条规则
type visibilityRule struct {
	name  string
	check func(in *visibilityInput) (bool, bool)
}

var visibilityRules = []visibilityRule{
	{"state_not_releasable", func(in *visibilityInput) (bool, bool) {
		// 只有 private 和 published 状态的答案才可能被展示
		if !in.answer.IsPrivate() && !in.answer.IsPublished() {
			return false, true
		}
		return false, false
	}},
	{"public_view", func(in *visibilityInput) (bool, bool) {
		if in.mode == ViewPublic {
			return false, true
		}
		return false, false
	}},
	{"export_private", func(in *visibilityInput) (bool, bool) {
		if in.mode == ViewExport && in.answer.IsPrivate() {
			return false, true
		}
		return false, false
	}},
	{"export_foreign_contributor", func(in *visibilityInput) (bool, bool) {
		if in.mode != ViewExport {
			return false, false
		}
		c := in.contribution
		if !c.IsGeneral() && (in.viewer == nil || c.ContributorID == nil || *c.ContributorID != in.viewer.ID) {
			return false, true
		}
		return false, false
	}},
	{"reviewer", func(in *visibilityInput) (bool, bool) {
		// 评审人能看到所有未被隐藏的答案，包括私密答案（既定策略，见 DESIGN.md）
		if in.viewer != nil && in.viewer.IsReviewer() {
			return true, true
		}
		return false, false
	}},
	{"private_own", func(in *visibilityInput) (bool, bool) {
		// 私密评论只有贡献者本人可见，代理人也不行
		if in.answer.IsPrivate() {
			c := in.contribution
			visible := in.viewer != nil && c.ContributorID != nil && *c.ContributorID == in.viewer.ID
			return visible, true
		}
		return false, false
	}},
	{"published_represented_contributor", func(in *visibilityInput) (bool, bool) {
		c := in.contribution
		if c.ContributorID != nil && in.represented[*c.ContributorID] {
			return true, true
		}
		return false, false
	}},
	{"published_all_scope", func(in *visibilityInput) (bool, bool) {
		if contributionWithScope(in.evaluation, in.represented, model.VisibilityAll) {
			return true, true
		}
		return false, false
	}},
	{"published_general_scope", func(in *visibilityInput) (bool, bool) {
		if !in.contribution.IsGeneral() {
			return false, false
		}
		if contributionWithScope(in.evaluation, in.represented, model.VisibilityCourse, model.VisibilityGeneral) {
			return true, true
		}
		return false, false
	}},
	{"published_general_responsible", func(in *visibilityInput) (bool, bool) {
		if !in.contribution.IsGeneral() {
			return false, false
		}
		if in.evaluation.IsUserResponsibleOrDelegate(in.represented) {
			return true, true
		}
		return false, false
	}},
}

// contributionWithScope 评教的某个贡献的贡献者属于 represented 集合，
// 且其文本答案可见范围是给定范围之一
func contributionWithScope(evaluation *model.Evaluation, represented map[uint]bool, scopes ...model.TextAnswerVisibility) bool {
	if evaluation == nil {
		return false
	}
	for i := range evaluation.Contributions {
		c := &evaluation.Contributions[i]
		if c.ContributorID == nil || !represented[*c.ContributorID] {
			continue
		}
		for _, scope := range scopes {
			if c.TextAnswerVisibility == scope {
				return true
			}
		}
	}
	return false
}

// CanSeeTextAnswer 判断 viewer 是否可以看到一条文本答案，并返回命中的规则名
// （供 staff 审计）。纯函数，无副作用。representedIDs 必须包含 viewer 本人。
// evaluation 需要预载全部贡献（含贡献者范围字段）。
func CanSeeTextAnswer(
	viewer *model.User,
	representedIDs map[uint]bool,
	answer *model.TextAnswer,
	contribution *model.Contribution,
	evaluation *model.Evaluation,
	mode ViewMode,
) (bool, string) {
	in := &visibilityInput{
		viewer:       viewer,
		represented:  representedIDs,
		answer:       answer,
		contribution: contribution,
		evaluation:   evaluation,
		mode:         mode,
	}

	for _, rule := range visibilityRules {
		if visible, matched := rule.check(in); matched {
			return visible, rule.name
		}
	}

	return false, "default_hidden"
}

// RepresentedIDs viewer 本人加上所有委托给 viewer 的用户
func RepresentedIDs(viewer *model.User, representedUsers []model.User) map[uint]bool {
	ids := make(map[uint]bool, len(representedUsers)+1)
	if viewer != nil {
		ids[viewer.ID] = true
	}
	for i := range representedUsers {
		ids[representedUsers[i].ID] = true
	}
	return ids
}

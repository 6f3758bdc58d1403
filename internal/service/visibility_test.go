package service

import (
	"course_eval_backend/internal/model"
	"testing"
)

func TestCanSeeTextAnswerStates(t *testing.T) {
	evaluation := newEvaluation()
	general := &evaluation.Contributions[0]
	reviewer := newUser(3, model.Reviewer)

	// 即使是评审人，未审核与已隐藏的答案也不可见
	for _, state := range []model.TextAnswerState{model.TextAnswerNotReviewed, model.TextAnswerHidden} {
		answer := newTextAnswer("a1", 1, state)
		visible, reason := CanSeeTextAnswer(reviewer, map[uint]bool{3: true}, answer, general, evaluation, ViewFull)
		if visible {
			t.Fatalf("answer in state %s must never be visible", state)
		}
		if reason != "state_not_releasable" {
			t.Fatalf("state %s: got reason %q, want state_not_releasable", state, reason)
		}
	}
}

func TestCanSeeTextAnswerPublicView(t *testing.T) {
	evaluation := newEvaluation()
	general := &evaluation.Contributions[0]
	staff := newUser(4, model.Staff)

	answer := newTextAnswer("a1", 1, model.TextAnswerPublished)
	visible, reason := CanSeeTextAnswer(staff, map[uint]bool{4: true}, answer, general, evaluation, ViewPublic)
	if visible {
		t.Fatal("public view must hide all text answers, even for staff")
	}
	if reason != "public_view" {
		t.Fatalf("got reason %q, want public_view", reason)
	}
}

func TestCanSeeTextAnswerExport(t *testing.T) {
	evaluation := newEvaluation()
	general := &evaluation.Contributions[0]
	own := &evaluation.Contributions[1]
	contributor := newUser(7, model.Contributor)
	represented := map[uint]bool{7: true}

	// 私密答案不进导出
	private := newTextAnswer("a1", 2, model.TextAnswerPrivate)
	if visible, reason := CanSeeTextAnswer(contributor, represented, private, own, evaluation, ViewExport); visible || reason != "export_private" {
		t.Fatalf("private answer in export: visible=%v reason=%q", visible, reason)
	}

	// 他人贡献的答案不进本人导出
	other := newUser(8, model.Contributor)
	published := newTextAnswer("a2", 2, model.TextAnswerPublished)
	if visible, reason := CanSeeTextAnswer(other, map[uint]bool{8: true}, published, own, evaluation, ViewExport); visible || reason != "export_foreign_contributor" {
		t.Fatalf("foreign contribution in export: visible=%v reason=%q", visible, reason)
	}

	// 本人贡献的已发布答案可导出
	if visible, _ := CanSeeTextAnswer(contributor, represented, published, own, evaluation, ViewExport); !visible {
		t.Fatal("contributor must be able to export answers about their own contribution")
	}

	// 课程级答案只有负责人（或其代理）可导出
	generalAnswer := newTextAnswer("a3", 1, model.TextAnswerPublished)
	if visible, _ := CanSeeTextAnswer(contributor, represented, generalAnswer, general, evaluation, ViewExport); !visible {
		t.Fatal("responsible contributor must be able to export general answers")
	}
	if visible, _ := CanSeeTextAnswer(other, map[uint]bool{8: true}, generalAnswer, general, evaluation, ViewExport); visible {
		t.Fatal("unrelated user must not export general answers")
	}
}

func TestCanSeeTextAnswerReviewerSeesPrivate(t *testing.T) {
	evaluation := newEvaluation()
	own := &evaluation.Contributions[1]
	reviewer := newUser(3, model.Reviewer)

	answer := newTextAnswer("a1", 2, model.TextAnswerPrivate)
	visible, reason := CanSeeTextAnswer(reviewer, map[uint]bool{3: true}, answer, own, evaluation, ViewFull)
	if !visible || reason != "reviewer" {
		t.Fatalf("reviewer must see private answers: visible=%v reason=%q", visible, reason)
	}
}

func TestCanSeeTextAnswerPrivateOwn(t *testing.T) {
	evaluation := newEvaluation()
	own := &evaluation.Contributions[1]
	answer := newTextAnswer("a1", 2, model.TextAnswerPrivate)

	contributor := newUser(7, model.Contributor)
	if visible, reason := CanSeeTextAnswer(contributor, map[uint]bool{7: true}, answer, own, evaluation, ViewFull); !visible || reason != "private_own" {
		t.Fatalf("contributor must see own private answers: visible=%v reason=%q", visible, reason)
	}

	// 私密答案对代理人也不可见
	delegate := newUser(9, model.Contributor)
	if visible, _ := CanSeeTextAnswer(delegate, map[uint]bool{9: true, 7: true}, answer, own, evaluation, ViewFull); visible {
		t.Fatal("delegates must not see private answers")
	}
}

func TestCanSeeTextAnswerDelegation(t *testing.T) {
	evaluation := newEvaluation()
	own := &evaluation.Contributions[1]
	general := &evaluation.Contributions[0]
	answer := newTextAnswer("a1", 2, model.TextAnswerPublished)

	// 代理人可见被代理人贡献的已发布答案
	delegate := newUser(9, model.Contributor)
	represented := map[uint]bool{9: true, 7: true}
	if visible, reason := CanSeeTextAnswer(delegate, represented, answer, own, evaluation, ViewFull); !visible || reason != "published_represented_contributor" {
		t.Fatalf("delegate visibility: visible=%v reason=%q", visible, reason)
	}

	// 被代理人是负责人时，代理人也可见课程级答案
	generalAnswer := newTextAnswer("a2", 1, model.TextAnswerPublished)
	if visible, reason := CanSeeTextAnswer(delegate, represented, generalAnswer, general, evaluation, ViewFull); !visible || reason != "published_general_responsible" {
		t.Fatalf("delegate general visibility: visible=%v reason=%q", visible, reason)
	}

	// 无关用户什么都看不到
	stranger := newUser(11, model.Student)
	if visible, reason := CanSeeTextAnswer(stranger, map[uint]bool{11: true}, answer, own, evaluation, ViewFull); visible || reason != "default_hidden" {
		t.Fatalf("stranger visibility: visible=%v reason=%q", visible, reason)
	}
}

func TestCanSeeTextAnswerScopes(t *testing.T) {
	evaluation := newEvaluation()
	general := &evaluation.Contributions[0]
	own := &evaluation.Contributions[1]

	// course 范围：贡献者额外可见课程级答案
	evaluation.Contributions[1].TextAnswerVisibility = model.VisibilityCourse
	contributor := newUser(7, model.Contributor)
	represented := map[uint]bool{7: true}

	generalAnswer := newTextAnswer("a1", 1, model.TextAnswerPublished)
	if visible, reason := CanSeeTextAnswer(contributor, represented, generalAnswer, general, evaluation, ViewFull); !visible || reason != "published_general_scope" {
		t.Fatalf("course scope: visible=%v reason=%q", visible, reason)
	}

	// all 范围：该评教所有已发布答案可见，不限于课程级
	evaluation.Contributions[1].TextAnswerVisibility = model.VisibilityAll
	otherContribution := model.Contribution{
		BaseModel:     model.BaseModel{ID: 3},
		EvaluationID:  1,
		ContributorID: uintPtr(8),
	}
	evaluation.Contributions = append(evaluation.Contributions, otherContribution)

	foreignAnswer := newTextAnswer("a2", 3, model.TextAnswerPublished)
	if visible, reason := CanSeeTextAnswer(contributor, represented, foreignAnswer, &evaluation.Contributions[2], evaluation, ViewFull); !visible || reason != "published_all_scope" {
		t.Fatalf("all scope: visible=%v reason=%q", visible, reason)
	}

	// own 范围回退：他人贡献的答案不可见
	evaluation.Contributions[1].TextAnswerVisibility = model.VisibilityOwn
	if visible, _ := CanSeeTextAnswer(contributor, represented, foreignAnswer, &evaluation.Contributions[2], evaluation, ViewFull); visible {
		t.Fatal("own scope must not reveal foreign answers")
	}
	_ = own
}

func TestCanSeeTextAnswerNilViewerFailsClosed(t *testing.T) {
	evaluation := newEvaluation()
	general := &evaluation.Contributions[0]
	answer := newTextAnswer("a1", 1, model.TextAnswerPublished)

	if visible, _ := CanSeeTextAnswer(nil, map[uint]bool{}, answer, general, evaluation, ViewFull); visible {
		t.Fatal("nil viewer must never see text answers")
	}
}

func TestRepresentedIDs(t *testing.T) {
	viewer := newUser(9, model.Contributor)
	represented := RepresentedIDs(viewer, []model.User{*newUser(7, model.Contributor), *newUser(8, model.Contributor)})

	for _, id := range []uint{7, 8, 9} {
		if !represented[id] {
			t.Fatalf("represented set missing id %d", id)
		}
	}
	if represented[11] {
		t.Fatal("represented set contains unrelated id")
	}
}

package schema

import "testing"

func TestStageOrdering(t *testing.T) {
	if len(Stages) != 11 {
		t.Fatalf("len(Stages) = %d, want 11", len(Stages))
	}
	for i, s := range Stages {
		if s.Order != i+1 {
			t.Errorf("stage %s Order = %d, want %d", s.ID, s.Order, i+1)
		}
		if StageOrder(s.ID) != s.Order {
			t.Errorf("StageOrder(%s) = %d, want %d", s.ID, StageOrder(s.ID), s.Order)
		}
		if !IsStage(s.ID) {
			t.Errorf("IsStage(%s) = false", s.ID)
		}
	}
	if Stages[0].ID != "inbox" {
		t.Errorf("first stage = %q, want inbox", Stages[0].ID)
	}
	if Stages[len(Stages)-1].ID != "done" {
		t.Errorf("last stage = %q, want done", Stages[len(Stages)-1].ID)
	}
}

func TestIsStageUnknown(t *testing.T) {
	if IsStage("shipping") {
		t.Error("IsStage(shipping) = true, want false")
	}
	if StageOrder("shipping") != 0 {
		t.Errorf("StageOrder(shipping) = %d, want 0", StageOrder("shipping"))
	}
}

func TestNextStage(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"inbox", "design_draft"},
		{"design_draft", "design_approved"},
		{"final_review", "done"},
		{"done", ""},
		{"bogus", ""},
	}
	for _, tc := range cases {
		if got := NextStage(tc.in); got != tc.want {
			t.Errorf("NextStage(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStageGroupFor(t *testing.T) {
	cases := []struct {
		stage string
		group string
	}{
		{"inbox", ""},
		{"design_draft", GroupDesign},
		{"design_approved", GroupDesign},
		{"planning_draft", GroupPlanning},
		{"plan_approved", GroupPlanning},
		{"tests_draft", GroupTests},
		{"tests_approved", GroupTests},
		{"ralph_loop", GroupImplementation},
		{"code_review", GroupImplementation},
		{"final_review", GroupImplementation},
		{"done", GroupImplementation},
	}
	for _, tc := range cases {
		if got := StageGroupFor(tc.stage); got != tc.group {
			t.Errorf("StageGroupFor(%s) = %q, want %q", tc.stage, got, tc.group)
		}
	}
}

func TestGroupStages(t *testing.T) {
	got := GroupStages(GroupDesign)
	want := []string{"design_draft", "design_approved"}
	if len(got) != len(want) {
		t.Fatalf("GroupStages(design) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GroupStages(design)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIsDraftStage(t *testing.T) {
	for _, id := range []string{"design_draft", "planning_draft", "tests_draft"} {
		if !IsDraftStage(id) {
			t.Errorf("IsDraftStage(%s) = false", id)
		}
	}
	for _, id := range []string{"inbox", "design_approved", "ralph_loop", "done"} {
		if IsDraftStage(id) {
			t.Errorf("IsDraftStage(%s) = true", id)
		}
	}
}

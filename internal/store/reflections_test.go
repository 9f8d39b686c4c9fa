package store

import (
	"strings"
	"testing"
)

func TestAddReflection(t *testing.T) {
	db := testDB(t)

	r := &Reflection{
		CycleTimestamp:  1000,
		CycleHour:       14,
		PostsDiscovered: 12,
		PostsEngaged:    3,
		RepliesSent:     1,
		LearningSummary: "tech submolt responds well to questions",
		KnowledgeUpdate: `[{"type":"community_insight","key":"tech"}]`,
		EstimatedCost:   0.0042,
	}
	if err := db.AddReflection(r); err != nil {
		t.Fatalf("AddReflection: %v", err)
	}
	if r.ID == 0 {
		t.Error("expected non-zero id")
	}

	refs, err := db.GetRecentReflections(4)
	if err != nil {
		t.Fatalf("GetRecentReflections: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("len = %d, want 1", len(refs))
	}
	got := refs[0]
	if got.PostsDiscovered != 12 || got.PostsEngaged != 3 || got.RepliesSent != 1 {
		t.Errorf("counters = %d/%d/%d, want 12/3/1", got.PostsDiscovered, got.PostsEngaged, got.RepliesSent)
	}
	if got.EstimatedCost != 0.0042 {
		t.Errorf("cost = %f, want 0.0042", got.EstimatedCost)
	}
	if got.KnowledgeUpdate == "" {
		t.Error("expected knowledge_updates preserved")
	}
}

func TestAddReflectionClampsSummary(t *testing.T) {
	db := testDB(t)

	r := &Reflection{
		CycleTimestamp:  1000,
		CycleHour:       0,
		LearningSummary: strings.Repeat("x", 900),
	}
	if err := db.AddReflection(r); err != nil {
		t.Fatalf("AddReflection: %v", err)
	}

	refs, _ := db.GetRecentReflections(1)
	if len(refs[0].LearningSummary) != 500 {
		t.Errorf("summary length = %d, want 500", len(refs[0].LearningSummary))
	}
}

func TestGetRecentReflectionsOrder(t *testing.T) {
	db := testDB(t)

	for i, ts := range []int64{3000, 1000, 2000} {
		db.AddReflection(&Reflection{
			CycleTimestamp:  ts,
			CycleHour:       i,
			LearningSummary: "s",
		})
	}

	refs, err := db.GetRecentReflections(2)
	if err != nil {
		t.Fatalf("GetRecentReflections: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("len = %d, want 2", len(refs))
	}
	if refs[0].CycleTimestamp != 3000 || refs[1].CycleTimestamp != 2000 {
		t.Errorf("order = [%d %d], want [3000 2000]", refs[0].CycleTimestamp, refs[1].CycleTimestamp)
	}
}

func TestGetRecentLearnings(t *testing.T) {
	db := testDB(t)

	db.AddReflection(&Reflection{CycleTimestamp: 1000, LearningSummary: "first"})
	db.AddReflection(&Reflection{CycleTimestamp: 2000, LearningSummary: "second"})

	learnings, err := db.GetRecentLearnings(3)
	if err != nil {
		t.Fatalf("GetRecentLearnings: %v", err)
	}
	if len(learnings) != 2 {
		t.Fatalf("len = %d, want 2", len(learnings))
	}
	if learnings[0] != "second" || learnings[1] != "first" {
		t.Errorf("learnings = %v, want newest first", learnings)
	}
}

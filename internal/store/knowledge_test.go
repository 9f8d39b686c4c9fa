package store

import (
	"math"
	"testing"
	"time"
)

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestUpsertKnowledgeCreate(t *testing.T) {
	db := testDB(t)

	id, created, err := db.UpsertKnowledge(KnowledgeUserNarrative, "agent-abc", "asks sharp questions", "", 1)
	if err != nil {
		t.Fatalf("UpsertKnowledge: %v", err)
	}
	if !created {
		t.Error("expected created = true on first upsert")
	}
	if id == 0 {
		t.Error("expected non-zero id")
	}

	rec, err := db.GetKnowledge(KnowledgeUserNarrative, "agent-abc")
	if err != nil {
		t.Fatalf("GetKnowledge: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if !closeTo(rec.Confidence, 0.3) {
		t.Errorf("confidence = %f, want 0.3", rec.Confidence)
	}
	if rec.EvidenceCount != 1 {
		t.Errorf("evidence_count = %d, want 1", rec.EvidenceCount)
	}
	if rec.FirstCreatedAt == 0 || rec.LastEvidenceAt == 0 {
		t.Error("expected timestamps to be set")
	}
	if rec.DecayAppliedAt != nil {
		t.Error("expected nil decay_applied_at on creation")
	}
}

func TestUpsertKnowledgeReinforce(t *testing.T) {
	db := testDB(t)

	db.UpsertKnowledge(KnowledgeTopicExpertise, "golang", "v1", "", 1)

	_, created, err := db.UpsertKnowledge(KnowledgeTopicExpertise, "golang", "v2", "", 1)
	if err != nil {
		t.Fatalf("reinforce: %v", err)
	}
	if created {
		t.Error("expected created = false on reinforcement")
	}

	rec, _ := db.GetKnowledge(KnowledgeTopicExpertise, "golang")
	if !closeTo(rec.Confidence, 0.37) {
		t.Errorf("confidence after one reinforcement = %f, want 0.37", rec.Confidence)
	}
	if rec.Content != "v2" {
		t.Errorf("content = %q, want v2", rec.Content)
	}
	if rec.EvidenceCount != 2 {
		t.Errorf("evidence_count = %d, want 2", rec.EvidenceCount)
	}

	db.UpsertKnowledge(KnowledgeTopicExpertise, "golang", "v3", "", 1)
	rec, _ = db.GetKnowledge(KnowledgeTopicExpertise, "golang")
	if !closeTo(rec.Confidence, 0.433) {
		t.Errorf("confidence after two reinforcements = %f, want 0.433", rec.Confidence)
	}
}

func TestUpsertKnowledgeConfidenceNeverReachesOne(t *testing.T) {
	db := testDB(t)

	prev := 0.0
	for i := 0; i < 200; i++ {
		db.UpsertKnowledge(KnowledgeEngagementStrategy, "ask-followup", "works", "", 1)
		rec, _ := db.GetKnowledge(KnowledgeEngagementStrategy, "ask-followup")
		if rec.Confidence <= prev {
			t.Fatalf("confidence not strictly increasing at step %d: %f <= %f", i, rec.Confidence, prev)
		}
		if rec.Confidence >= 1.0 {
			t.Fatalf("confidence reached %f at step %d, must stay below 1.0", rec.Confidence, i)
		}
		prev = rec.Confidence
	}
}

func TestUpsertKnowledgeStructuredData(t *testing.T) {
	db := testDB(t)

	db.UpsertKnowledge(KnowledgeCommunityInsight, "tech", "fast-moving", `{"tone":"dry"}`, 1)

	// Empty structured data on reinforcement keeps the prior value.
	db.UpsertKnowledge(KnowledgeCommunityInsight, "tech", "fast-moving", "", 1)
	rec, _ := db.GetKnowledge(KnowledgeCommunityInsight, "tech")
	if rec.StructuredData != `{"tone":"dry"}` {
		t.Errorf("structured_data = %q, want prior value kept", rec.StructuredData)
	}

	// Non-empty structured data replaces.
	db.UpsertKnowledge(KnowledgeCommunityInsight, "tech", "fast-moving", `{"tone":"warm"}`, 1)
	rec, _ = db.GetKnowledge(KnowledgeCommunityInsight, "tech")
	if rec.StructuredData != `{"tone":"warm"}` {
		t.Errorf("structured_data = %q, want replaced value", rec.StructuredData)
	}
}

func TestUpsertKnowledgeEvidenceWeight(t *testing.T) {
	db := testDB(t)

	db.UpsertKnowledge(KnowledgeUserNarrative, "agent-x", "c", "", 3)
	rec, _ := db.GetKnowledge(KnowledgeUserNarrative, "agent-x")
	if rec.EvidenceCount != 3 {
		t.Errorf("evidence_count = %d, want 3", rec.EvidenceCount)
	}

	db.UpsertKnowledge(KnowledgeUserNarrative, "agent-x", "c", "", 2)
	rec, _ = db.GetKnowledge(KnowledgeUserNarrative, "agent-x")
	if rec.EvidenceCount != 5 {
		t.Errorf("evidence_count = %d, want 5", rec.EvidenceCount)
	}
}

func TestUpsertKnowledgeInvalid(t *testing.T) {
	db := testDB(t)

	if _, _, err := db.UpsertKnowledge("bogus", "k", "c", "", 1); err == nil {
		t.Error("expected error for invalid type")
	}
	if _, _, err := db.UpsertKnowledge(KnowledgeUserNarrative, "", "c", "", 1); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestContradictKnowledge(t *testing.T) {
	db := testDB(t)

	db.UpsertKnowledge(KnowledgeUserNarrative, "agent-y", "friendly", "", 1)
	// Push confidence up to 0.5 for an exact check.
	if _, err := db.Exec(`UPDATE memory_knowledge SET confidence = 0.5 WHERE knowledge_key = 'agent-y'`); err != nil {
		t.Fatalf("set confidence: %v", err)
	}

	affected, err := db.ContradictKnowledge(KnowledgeUserNarrative, "agent-y", "actually hostile")
	if err != nil {
		t.Fatalf("ContradictKnowledge: %v", err)
	}
	if !affected {
		t.Error("expected affected = true")
	}

	rec, _ := db.GetKnowledge(KnowledgeUserNarrative, "agent-y")
	if !closeTo(rec.Confidence, 0.35) {
		t.Errorf("confidence = %f, want 0.35", rec.Confidence)
	}
	if rec.Content != "actually hostile" {
		t.Errorf("content = %q, want replacement", rec.Content)
	}

	// Repeated contradictions floor at 0.1.
	for i := 0; i < 10; i++ {
		db.ContradictKnowledge(KnowledgeUserNarrative, "agent-y", "still hostile")
	}
	rec, _ = db.GetKnowledge(KnowledgeUserNarrative, "agent-y")
	if !closeTo(rec.Confidence, 0.1) {
		t.Errorf("confidence after repeated contradictions = %f, want 0.1", rec.Confidence)
	}
}

func TestContradictKnowledgeMissing(t *testing.T) {
	db := testDB(t)

	affected, err := db.ContradictKnowledge(KnowledgeUserNarrative, "nobody", "x")
	if err != nil {
		t.Fatalf("ContradictKnowledge: %v", err)
	}
	if affected {
		t.Error("expected affected = false for missing record")
	}
}

func TestDecayStaleKnowledge(t *testing.T) {
	db := testDB(t)

	db.UpsertKnowledge(KnowledgeTopicExpertise, "rust", "borrow checker", "", 1)
	db.UpsertKnowledge(KnowledgeTopicExpertise, "zig", "comptime", "", 1)

	// Make "rust" stale; "zig" stays fresh.
	old := time.Now().AddDate(0, 0, -30).UnixMilli()
	if _, err := db.Exec(`UPDATE memory_knowledge SET last_evidence_at = ? WHERE knowledge_key = 'rust'`, old); err != nil {
		t.Fatalf("age record: %v", err)
	}

	n, err := db.DecayStaleKnowledge(14)
	if err != nil {
		t.Fatalf("DecayStaleKnowledge: %v", err)
	}
	if n != 1 {
		t.Errorf("decayed = %d, want 1", n)
	}

	rust, _ := db.GetKnowledge(KnowledgeTopicExpertise, "rust")
	if !closeTo(rust.Confidence, 0.27) {
		t.Errorf("rust confidence = %f, want 0.27", rust.Confidence)
	}
	if rust.DecayAppliedAt == nil {
		t.Error("expected decay_applied_at set")
	}

	zig, _ := db.GetKnowledge(KnowledgeTopicExpertise, "zig")
	if !closeTo(zig.Confidence, 0.3) {
		t.Errorf("zig confidence = %f, want 0.3 (fresh record untouched)", zig.Confidence)
	}
}

func TestDecayStaleKnowledgeRateLimited(t *testing.T) {
	db := testDB(t)

	db.UpsertKnowledge(KnowledgeTopicExpertise, "cobol", "legacy", "", 1)
	old := time.Now().AddDate(0, 0, -30).UnixMilli()
	db.Exec(`UPDATE memory_knowledge SET last_evidence_at = ?`, old)

	if n, _ := db.DecayStaleKnowledge(14); n != 1 {
		t.Fatalf("first decay pass = %d, want 1", n)
	}
	// Second pass the same day must not touch the record again.
	if n, _ := db.DecayStaleKnowledge(14); n != 0 {
		t.Errorf("second decay pass = %d, want 0", n)
	}

	rec, _ := db.GetKnowledge(KnowledgeTopicExpertise, "cobol")
	if !closeTo(rec.Confidence, 0.27) {
		t.Errorf("confidence = %f, want 0.27 (decayed exactly once)", rec.Confidence)
	}

	// After the rate-limit window, decay applies again.
	dayAndMore := time.Now().Add(-25 * time.Hour).UnixMilli()
	db.Exec(`UPDATE memory_knowledge SET decay_applied_at = ?`, dayAndMore)
	if n, _ := db.DecayStaleKnowledge(14); n != 1 {
		t.Errorf("decay after rate-limit window = want 1")
	}
}

func TestDecayStaleKnowledgeSkipsFloor(t *testing.T) {
	db := testDB(t)

	db.UpsertKnowledge(KnowledgeTopicExpertise, "fortran", "arrays", "", 1)
	old := time.Now().AddDate(0, 0, -30).UnixMilli()
	db.Exec(`UPDATE memory_knowledge SET last_evidence_at = ?, confidence = 0.1`, old)

	if n, _ := db.DecayStaleKnowledge(14); n != 0 {
		t.Errorf("decay touched a record at the floor")
	}
}

func TestPruneDeadKnowledge(t *testing.T) {
	db := testDB(t)

	db.UpsertKnowledge(KnowledgeTopicExpertise, "dying", "x", "", 1)
	db.UpsertKnowledge(KnowledgeTopicExpertise, "boundary", "y", "", 1)
	db.UpsertKnowledge(KnowledgeTopicExpertise, "healthy", "z", "", 1)
	db.Exec(`UPDATE memory_knowledge SET confidence = 0.05 WHERE knowledge_key = 'dying'`)
	db.Exec(`UPDATE memory_knowledge SET confidence = 0.1 WHERE knowledge_key = 'boundary'`)

	n, err := db.PruneDeadKnowledge(0.1)
	if err != nil {
		t.Fatalf("PruneDeadKnowledge: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}

	if rec, _ := db.GetKnowledge(KnowledgeTopicExpertise, "dying"); rec != nil {
		t.Error("expected record below threshold to be removed")
	}
	if rec, _ := db.GetKnowledge(KnowledgeTopicExpertise, "boundary"); rec == nil {
		t.Error("record exactly at threshold must survive")
	}
	if rec, _ := db.GetKnowledge(KnowledgeTopicExpertise, "healthy"); rec == nil {
		t.Error("healthy record must survive")
	}
}

func TestGetKnowledgeMissing(t *testing.T) {
	db := testDB(t)

	rec, err := db.GetKnowledge(KnowledgeUserNarrative, "ghost")
	if err != nil {
		t.Fatalf("GetKnowledge: %v", err)
	}
	if rec != nil {
		t.Error("expected nil for missing record")
	}
}

func TestGetKnowledgeByType(t *testing.T) {
	db := testDB(t)

	db.UpsertKnowledge(KnowledgeEngagementStrategy, "low", "a", "", 1)
	db.UpsertKnowledge(KnowledgeEngagementStrategy, "mid", "b", "", 1)
	db.UpsertKnowledge(KnowledgeEngagementStrategy, "high", "c", "", 1)
	db.Exec(`UPDATE memory_knowledge SET confidence = 0.15 WHERE knowledge_key = 'low'`)
	db.Exec(`UPDATE memory_knowledge SET confidence = 0.5 WHERE knowledge_key = 'mid'`)
	db.Exec(`UPDATE memory_knowledge SET confidence = 0.9 WHERE knowledge_key = 'high'`)

	recs, err := db.GetKnowledgeByType(KnowledgeEngagementStrategy, 0.2, 10)
	if err != nil {
		t.Fatalf("GetKnowledgeByType: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2 (threshold filters)", len(recs))
	}
	if recs[0].Key != "high" || recs[1].Key != "mid" {
		t.Errorf("order = [%s %s], want [high mid]", recs[0].Key, recs[1].Key)
	}

	recs, _ = db.GetKnowledgeByType(KnowledgeEngagementStrategy, 0, 1)
	if len(recs) != 1 {
		t.Errorf("limit not applied: len = %d, want 1", len(recs))
	}
}

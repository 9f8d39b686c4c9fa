package store

import (
	"database/sql"
	"fmt"
	"time"
)

// KnowledgeType is the closed set of knowledge categories hobbot maintains.
type KnowledgeType string

const (
	KnowledgeUserNarrative      KnowledgeType = "user_narrative"
	KnowledgeCommunityInsight   KnowledgeType = "community_insight"
	KnowledgeTopicExpertise     KnowledgeType = "topic_expertise"
	KnowledgeEngagementStrategy KnowledgeType = "engagement_strategy"
)

// ValidKnowledgeType reports whether t is one of the four known types.
func ValidKnowledgeType(t string) bool {
	switch KnowledgeType(t) {
	case KnowledgeUserNarrative, KnowledgeCommunityInsight,
		KnowledgeTopicExpertise, KnowledgeEngagementStrategy:
		return true
	}
	return false
}

// Confidence accounting constants. Creation seeds at 0.3; each reinforcement
// closes 10% of the remaining gap to 1.0; contradiction subtracts a flat 0.15
// with a floor of 0.1; daily decay multiplies stale records by 0.9.
const (
	seedConfidence       = 0.3
	reinforceGapFactor   = 0.1
	contradictPenalty    = 0.15
	confidenceFloor      = 0.1
	decayFactor          = 0.9
	DefaultStaleDays     = 14
	DefaultMinConfidence = 0.1
)

// KnowledgeRecord is one row of memory_knowledge.
type KnowledgeRecord struct {
	ID             int64
	Type           KnowledgeType
	Key            string
	Content        string
	StructuredData string // serialized JSON, empty when absent
	Confidence     float64
	EvidenceCount  int
	FirstCreatedAt int64
	LastUpdatedAt  int64
	LastEvidenceAt int64
	DecayAppliedAt *int64
}

// UpsertKnowledge creates or reinforces a knowledge record. The reinforcement
// arithmetic runs inside a single ON CONFLICT statement so concurrent upserts
// on the same (type, key) merge instead of racing a read-then-write.
// structuredData is replaced only when non-empty; content always replaces.
// Returns the record id and whether a new record was created.
func (db *DB) UpsertKnowledge(ktype KnowledgeType, key, content, structuredData string, evidenceCount int) (int64, bool, error) {
	if !ValidKnowledgeType(string(ktype)) {
		return 0, false, fmt.Errorf("invalid knowledge type %q", ktype)
	}
	if key == "" {
		return 0, false, fmt.Errorf("empty knowledge key")
	}
	if evidenceCount < 1 {
		evidenceCount = 1
	}

	now := time.Now().UnixMilli()
	var id int64
	var gotEvidence int
	err := db.QueryRow(`
		INSERT INTO memory_knowledge
			(knowledge_type, knowledge_key, content, structured_data, confidence, evidence_count,
			 first_created_at, last_updated_at, last_evidence_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)
		ON CONFLICT (knowledge_type, knowledge_key) DO UPDATE SET
			content          = excluded.content,
			structured_data  = COALESCE(excluded.structured_data, structured_data),
			confidence       = MIN(1.0, confidence + ? * (1.0 - confidence)),
			evidence_count   = evidence_count + excluded.evidence_count,
			last_updated_at  = excluded.last_updated_at,
			last_evidence_at = excluded.last_evidence_at
		RETURNING id, evidence_count
	`, ktype, key, content, structuredData, seedConfidence, evidenceCount,
		now, now, now, reinforceGapFactor).Scan(&id, &gotEvidence)
	if err != nil {
		return 0, false, fmt.Errorf("upsert knowledge %s/%s: %w", ktype, key, err)
	}

	// A pre-existing row holds at least 1 evidence, so after a reinforcement the
	// returned count always exceeds the count we just passed in.
	created := gotEvidence == evidenceCount
	return id, created, nil
}

// ContradictKnowledge replaces a record's content and drops its confidence by
// 0.15, floored at 0.1. A missing record affects zero rows and is not an error.
func (db *DB) ContradictKnowledge(ktype KnowledgeType, key, newContent string) (bool, error) {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		UPDATE memory_knowledge SET
			content          = ?,
			confidence       = MAX(?, confidence - ?),
			last_updated_at  = ?,
			last_evidence_at = ?
		WHERE knowledge_type = ? AND knowledge_key = ?
	`, newContent, confidenceFloor, contradictPenalty, now, now, ktype, key)
	if err != nil {
		return false, fmt.Errorf("contradict knowledge %s/%s: %w", ktype, key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DecayStaleKnowledge multiplies confidence by 0.9 for every record whose last
// evidence is older than staleDays and whose confidence is above the floor.
// decay_applied_at rate-limits the erosion to at most once per day per record
// no matter how often this runs. Returns the number of records decayed.
func (db *DB) DecayStaleKnowledge(staleDays int) (int, error) {
	if staleDays <= 0 {
		staleDays = DefaultStaleDays
	}
	now := time.Now().UnixMilli()
	staleBefore := now - int64(staleDays)*24*60*60*1000
	dayAgo := now - 24*60*60*1000

	res, err := db.Exec(`
		UPDATE memory_knowledge SET
			confidence       = confidence * ?,
			decay_applied_at = ?
		WHERE last_evidence_at < ?
		  AND confidence > ?
		  AND (decay_applied_at IS NULL OR decay_applied_at < ?)
	`, decayFactor, now, staleBefore, confidenceFloor, dayAgo)
	if err != nil {
		return 0, fmt.Errorf("decay stale knowledge: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// PruneDeadKnowledge deletes every record with confidence strictly below
// minConfidence and returns the number removed.
func (db *DB) PruneDeadKnowledge(minConfidence float64) (int, error) {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	res, err := db.Exec(`DELETE FROM memory_knowledge WHERE confidence < ?`, minConfidence)
	if err != nil {
		return 0, fmt.Errorf("prune dead knowledge: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// GetKnowledge returns the record for (type, key), or nil if not found.
func (db *DB) GetKnowledge(ktype KnowledgeType, key string) (*KnowledgeRecord, error) {
	row := db.QueryRow(`
		SELECT id, knowledge_type, knowledge_key, content, structured_data, confidence,
			evidence_count, first_created_at, last_updated_at, last_evidence_at, decay_applied_at
		FROM memory_knowledge WHERE knowledge_type = ? AND knowledge_key = ?
	`, ktype, key)

	rec, err := scanKnowledge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get knowledge %s/%s: %w", ktype, key, err)
	}
	return rec, nil
}

// GetKnowledgeByType returns up to limit records of one type at or above
// minConfidence, highest confidence first.
func (db *DB) GetKnowledgeByType(ktype KnowledgeType, minConfidence float64, limit int) ([]KnowledgeRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(`
		SELECT id, knowledge_type, knowledge_key, content, structured_data, confidence,
			evidence_count, first_created_at, last_updated_at, last_evidence_at, decay_applied_at
		FROM memory_knowledge
		WHERE knowledge_type = ? AND confidence >= ?
		ORDER BY confidence DESC
		LIMIT ?
	`, ktype, minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("get knowledge by type %s: %w", ktype, err)
	}
	defer rows.Close()

	var recs []KnowledgeRecord
	for rows.Next() {
		rec, err := scanKnowledge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan knowledge: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanKnowledge(s scanner) (*KnowledgeRecord, error) {
	var rec KnowledgeRecord
	var structured sql.NullString
	var decayAt sql.NullInt64
	err := s.Scan(&rec.ID, &rec.Type, &rec.Key, &rec.Content, &structured,
		&rec.Confidence, &rec.EvidenceCount,
		&rec.FirstCreatedAt, &rec.LastUpdatedAt, &rec.LastEvidenceAt, &decayAt)
	if err != nil {
		return nil, err
	}
	rec.StructuredData = structured.String
	if decayAt.Valid {
		rec.DecayAppliedAt = &decayAt.Int64
	}
	return &rec, nil
}

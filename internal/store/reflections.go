package store

import (
	"database/sql"
	"fmt"
)

// maxSummarySize caps learning_summary at write time. The pipeline clamps
// earlier too, but the store enforces its own ceiling.
const maxSummarySize = 500

// Reflection is one row of the append-only memory_reflections log.
type Reflection struct {
	ID              int64
	CycleTimestamp  int64
	CycleHour       int
	PostsDiscovered int
	PostsEngaged    int
	PostsCataloged  int
	PostsFailed     int
	RepliesSent     int
	LearningSummary string
	KnowledgeUpdate string // serialized JSON list of applied update proposals
	EstimatedCost   float64
}

// AddReflection appends one reflection record. Records are immutable once written.
func (db *DB) AddReflection(r *Reflection) error {
	if len(r.LearningSummary) > maxSummarySize {
		r.LearningSummary = r.LearningSummary[:maxSummarySize]
	}

	res, err := db.Exec(`
		INSERT INTO memory_reflections
			(cycle_timestamp, cycle_hour, posts_discovered, posts_engaged, posts_cataloged,
			 posts_failed, replies_sent, learning_summary, knowledge_updates, estimated_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)
	`, r.CycleTimestamp, r.CycleHour, r.PostsDiscovered, r.PostsEngaged, r.PostsCataloged,
		r.PostsFailed, r.RepliesSent, r.LearningSummary, r.KnowledgeUpdate, r.EstimatedCost)
	if err != nil {
		return fmt.Errorf("add reflection: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// GetRecentReflections returns the most recent reflections, newest first.
func (db *DB) GetRecentReflections(limit int) ([]Reflection, error) {
	if limit <= 0 {
		limit = 4
	}
	rows, err := db.Query(`
		SELECT id, cycle_timestamp, cycle_hour, posts_discovered, posts_engaged,
			posts_cataloged, posts_failed, replies_sent, learning_summary,
			knowledge_updates, estimated_cost
		FROM memory_reflections ORDER BY cycle_timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent reflections: %w", err)
	}
	defer rows.Close()

	var refs []Reflection
	for rows.Next() {
		var r Reflection
		var updates sql.NullString
		if err := rows.Scan(&r.ID, &r.CycleTimestamp, &r.CycleHour, &r.PostsDiscovered,
			&r.PostsEngaged, &r.PostsCataloged, &r.PostsFailed, &r.RepliesSent,
			&r.LearningSummary, &updates, &r.EstimatedCost); err != nil {
			return nil, fmt.Errorf("scan reflection: %w", err)
		}
		r.KnowledgeUpdate = updates.String
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// GetRecentLearnings returns the learning summaries of the most recent
// reflections, newest first, skipping empty summaries.
func (db *DB) GetRecentLearnings(limit int) ([]string, error) {
	refs, err := db.GetRecentReflections(limit)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range refs {
		if r.LearningSummary != "" {
			out = append(out, r.LearningSummary)
		}
	}
	return out, nil
}

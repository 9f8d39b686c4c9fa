package store

import (
	"database/sql"
	"fmt"
	"time"
)

// InteractionOutcome is a row from the collaborator-owned interaction_outcomes
// table. This core only reads it.
type InteractionOutcome struct {
	ID           int64
	PostID       string
	Submolt      string
	HobbotAction string
	TopicSignals string
	CreatedAt    int64
}

// AgentProfile is a row from the collaborator-owned agent_profiles table.
type AgentProfile struct {
	ID               int64
	AgentHash        string
	Username         string
	QualityScore     float64
	InteractionCount int
	LastActiveAt     *int64
}

// GetRecentOutcomes returns interaction outcomes newer than the given window,
// newest first.
func (db *DB) GetRecentOutcomes(window time.Duration, limit int) ([]InteractionOutcome, error) {
	since := time.Now().Add(-window).UnixMilli()
	rows, err := db.Query(`
		SELECT id, post_id, submolt, hobbot_action, topic_signals, created_at
		FROM interaction_outcomes
		WHERE created_at >= ?
		ORDER BY created_at DESC LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent outcomes: %w", err)
	}
	defer rows.Close()

	var outs []InteractionOutcome
	for rows.Next() {
		var o InteractionOutcome
		var postID, submolt, action, topics sql.NullString
		if err := rows.Scan(&o.ID, &postID, &submolt, &action, &topics, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.PostID = postID.String
		o.Submolt = submolt.String
		o.HobbotAction = action.String
		o.TopicSignals = topics.String
		outs = append(outs, o)
	}
	return outs, rows.Err()
}

// GetActiveAgents returns agents active within the given window, most recently
// active first.
func (db *DB) GetActiveAgents(window time.Duration, limit int) ([]AgentProfile, error) {
	since := time.Now().Add(-window).UnixMilli()
	rows, err := db.Query(`
		SELECT id, agent_hash, username, quality_score, interaction_count, last_active_at
		FROM agent_profiles
		WHERE last_active_at IS NOT NULL AND last_active_at >= ?
		ORDER BY last_active_at DESC LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("get active agents: %w", err)
	}
	defer rows.Close()

	var agents []AgentProfile
	for rows.Next() {
		var a AgentProfile
		var username sql.NullString
		var lastActive sql.NullInt64
		if err := rows.Scan(&a.ID, &a.AgentHash, &username, &a.QualityScore,
			&a.InteractionCount, &lastActive); err != nil {
			return nil, fmt.Errorf("scan agent profile: %w", err)
		}
		a.Username = username.String
		if lastActive.Valid {
			a.LastActiveAt = &lastActive.Int64
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// LogUsage records one synthesis call in usage_log for cost accounting.
func (db *DB) LogUsage(layer, provider, model string, inputTokens, outputTokens int, estimatedCost float64) error {
	now := time.Now()
	_, err := db.Exec(`
		INSERT INTO usage_log (date, layer, provider, model, input_tokens, output_tokens, estimated_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, now.Format("2006-01-02"), layer, provider, model, inputTokens, outputTokens, estimatedCost, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("log usage: %w", err)
	}
	return nil
}

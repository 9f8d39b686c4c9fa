package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "memory_knowledge: confidence-weighted knowledge records",
		SQL: `
CREATE TABLE memory_knowledge (
    id               INTEGER PRIMARY KEY,
    knowledge_type   TEXT NOT NULL CHECK (knowledge_type IN ('user_narrative', 'community_insight', 'topic_expertise', 'engagement_strategy')),
    knowledge_key    TEXT NOT NULL,
    content          TEXT NOT NULL,
    structured_data  TEXT,
    confidence       REAL NOT NULL DEFAULT 0.3,
    evidence_count   INTEGER NOT NULL DEFAULT 1,
    first_created_at INTEGER NOT NULL,
    last_updated_at  INTEGER NOT NULL,
    last_evidence_at INTEGER NOT NULL,
    decay_applied_at INTEGER,

    UNIQUE (knowledge_type, knowledge_key)
);

CREATE INDEX idx_knowledge_type_conf ON memory_knowledge(knowledge_type, confidence DESC);
CREATE INDEX idx_knowledge_evidence  ON memory_knowledge(last_evidence_at);
`,
	},
	{
		Version:     2,
		Description: "memory_reflections: append-only per-cycle learning log",
		SQL: `
CREATE TABLE memory_reflections (
    id               INTEGER PRIMARY KEY,
    cycle_timestamp  INTEGER NOT NULL,
    cycle_hour       INTEGER NOT NULL CHECK (cycle_hour BETWEEN 0 AND 23),
    posts_discovered INTEGER NOT NULL DEFAULT 0,
    posts_engaged    INTEGER NOT NULL DEFAULT 0,
    posts_cataloged  INTEGER NOT NULL DEFAULT 0,
    posts_failed     INTEGER NOT NULL DEFAULT 0,
    replies_sent     INTEGER NOT NULL DEFAULT 0,
    learning_summary TEXT NOT NULL,
    knowledge_updates TEXT,
    estimated_cost   REAL NOT NULL DEFAULT 0
);

CREATE INDEX idx_reflections_ts ON memory_reflections(cycle_timestamp DESC);
`,
	},
	{
		Version:     3,
		Description: "interaction_outcomes + agent_profiles: collaborator telemetry tables",
		SQL: `
CREATE TABLE IF NOT EXISTS interaction_outcomes (
    id            INTEGER PRIMARY KEY,
    post_id       TEXT,
    submolt       TEXT,
    hobbot_action TEXT,
    topic_signals TEXT,
    created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_created ON interaction_outcomes(created_at DESC);

CREATE TABLE IF NOT EXISTS agent_profiles (
    id                INTEGER PRIMARY KEY,
    agent_hash        TEXT NOT NULL UNIQUE,
    username          TEXT,
    quality_score     REAL NOT NULL DEFAULT 0,
    interaction_count INTEGER NOT NULL DEFAULT 0,
    last_active_at    INTEGER
);

CREATE INDEX IF NOT EXISTS idx_agents_active ON agent_profiles(last_active_at DESC);
`,
	},
	{
		Version:     4,
		Description: "usage_log: synthesis call cost accounting",
		SQL: `
CREATE TABLE usage_log (
    id             INTEGER PRIMARY KEY,
    date           TEXT NOT NULL,
    layer          TEXT NOT NULL,
    provider       TEXT NOT NULL,
    model          TEXT NOT NULL,
    input_tokens   INTEGER NOT NULL DEFAULT 0,
    output_tokens  INTEGER NOT NULL DEFAULT 0,
    estimated_cost REAL NOT NULL DEFAULT 0,
    created_at     INTEGER NOT NULL
);

CREATE INDEX idx_usage_date ON usage_log(date);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}

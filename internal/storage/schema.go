package storage

import "github.com/cortexmind/cortexd/internal/cerrors"

// schemaVersion is the current schema generation. migrate() is
// idempotent and additive; there is no down-migration path.
const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`,

	`CREATE TABLE IF NOT EXISTS file_content (
		content_hash TEXT PRIMARY KEY,
		content TEXT,
		content_binary BLOB,
		is_text INTEGER NOT NULL,
		size_bytes INTEGER NOT NULL,
		line_count INTEGER NOT NULL,
		reference_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS vnode (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		path TEXT NOT NULL,
		kind TEXT NOT NULL,
		content_hash TEXT,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		read_only INTEGER NOT NULL DEFAULT 0,
		language TEXT,
		status TEXT NOT NULL,
		metadata TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_vnode_active_path
		ON vnode(workspace_id, path) WHERE status = 'ACTIVE'`,
	`CREATE INDEX IF NOT EXISTS idx_vnode_workspace ON vnode(workspace_id)`,

	`CREATE TABLE IF NOT EXISTS workspace (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		source TEXT NOT NULL,
		namespace TEXT NOT NULL UNIQUE,
		source_path TEXT,
		read_only INTEGER NOT NULL DEFAULT 0,
		parent_workspace TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS code_unit (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		qualified_name TEXT NOT NULL,
		display_name TEXT,
		file_path TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		start_column INTEGER NOT NULL,
		end_column INTEGER NOT NULL,
		start_byte INTEGER NOT NULL,
		end_byte INTEGER NOT NULL,
		language TEXT NOT NULL,
		signature TEXT,
		body TEXT,
		docstring TEXT,
		visibility TEXT NOT NULL,
		attributes TEXT,
		is_async INTEGER NOT NULL DEFAULT 0,
		is_unsafe INTEGER NOT NULL DEFAULT 0,
		is_const INTEGER NOT NULL DEFAULT 0,
		complexity TEXT,
		has_tests INTEGER NOT NULL DEFAULT 0,
		has_documentation INTEGER NOT NULL DEFAULT 0,
		embedding_model TEXT,
		status TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_code_unit_qname
		ON code_unit(workspace_id, language, qualified_name)`,
	`CREATE INDEX IF NOT EXISTS idx_code_unit_file ON code_unit(workspace_id, file_path)`,

	`CREATE TABLE IF NOT EXISTS dependency_edge (
		from_unit TEXT NOT NULL,
		to_unit TEXT NOT NULL,
		kind TEXT NOT NULL,
		workspace_id TEXT NOT NULL,
		attributes TEXT,
		PRIMARY KEY (workspace_id, from_unit, to_unit, kind)
	)`,

	`CREATE TABLE IF NOT EXISTS episode (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		task_description TEXT NOT NULL,
		agent_id TEXT,
		episode_type TEXT NOT NULL,
		entities_created TEXT,
		entities_modified TEXT,
		tools_used TEXT,
		outcome TEXT NOT NULL,
		duration_seconds REAL NOT NULL DEFAULT 0,
		solution_summary TEXT,
		lessons_learned TEXT,
		access_count INTEGER NOT NULL DEFAULT 0,
		pattern_value REAL NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_episode_workspace_time ON episode(workspace_id, timestamp)`,

	`CREATE TABLE IF NOT EXISTS learned_pattern (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		pattern_type TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		context TEXT,
		times_applied INTEGER NOT NULL DEFAULT 0,
		success_rate REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		last_applied_at TEXT,
		representation TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS ingest_checkpoint (
		workspace_id TEXT PRIMARY KEY,
		stage TEXT NOT NULL,
		total_units INTEGER NOT NULL DEFAULT 0,
		embedded_units INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS index_state (
		workspace_id TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		model TEXT NOT NULL
	)`,
}

// migrate applies schemaStatements idempotently and records the schema
// version. Safe to call on every Open.
func (s *Store) migrate() error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return cerrors.Wrap(cerrors.KindStorage, "apply schema migration", err)
		}
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO schema_version(version) VALUES (?)`, schemaVersion)
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "record schema version", err)
	}
	return nil
}

package store

// The schema is owned by the session-ingestion pipeline; this copy exists so a
// fresh development database opens with the right shape. Every statement is
// idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		root_session_id TEXT,
		parent_session_id TEXT,
		status TEXT,
		title TEXT,
		agent_name TEXT,
		started_at TEXT,
		completed_at TEXT,
		cost_usd REAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id)`,

	`CREATE TABLE IF NOT EXISTS file_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		file_path TEXT NOT NULL,
		action TEXT,
		file_type TEXT,
		tool_name TEXT,
		timestamp TEXT,
		lines_added INTEGER,
		lines_deleted INTEGER,
		agent_name TEXT,
		log_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_file_events_project ON file_events(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_file_events_session ON file_events(session_id)`,

	`CREATE TABLE IF NOT EXISTS features (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT,
		status TEXT,
		category TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS entity_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		confidence REAL,
		metadata TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entity_links_project ON entity_links(project_id)`,

	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		title TEXT,
		doc_type TEXT,
		file_path TEXT,
		session_id TEXT,
		created_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id)`,

	`CREATE TABLE IF NOT EXISTS document_path_refs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		file_path TEXT NOT NULL,
		relation TEXT,
		created_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_doc_refs_project ON document_path_refs(project_id)`,

	`CREATE TABLE IF NOT EXISTS session_logs (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		log_type TEXT,
		content BLOB,
		compression TEXT,
		timestamp TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_session_logs_session ON session_logs(session_id)`,

	`CREATE TABLE IF NOT EXISTS session_artifacts (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		artifact_type TEXT,
		name TEXT,
		file_path TEXT,
		created_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_session_artifacts_session ON session_artifacts(session_id)`,
}

func (db *DB) initializeSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

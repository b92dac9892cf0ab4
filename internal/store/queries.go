package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// FetchFileEvents returns all file-touch events for the project joined to
// their owning session, newest insertion first.
func (db *DB) FetchFileEvents(ctx context.Context, projectID string) ([]EventRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			fe.id, fe.session_id, fe.file_path, fe.action, fe.file_type,
			fe.tool_name, fe.timestamp, fe.lines_added, fe.lines_deleted,
			fe.agent_name, fe.log_id,
			s.root_session_id, s.parent_session_id, s.status, s.started_at, s.cost_usd
		FROM file_events fe
		LEFT JOIN sessions s ON s.id = fe.session_id
		WHERE fe.project_id = ?
		ORDER BY fe.id DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch file events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		var action, fileType, toolName, timestamp, agentName, logID sql.NullString
		var rootID, parentID, status, startedAt sql.NullString
		var added, deleted sql.NullInt64
		var cost sql.NullFloat64

		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.FilePath, &action, &fileType,
			&toolName, &timestamp, &added, &deleted,
			&agentName, &logID,
			&rootID, &parentID, &status, &startedAt, &cost,
		); err != nil {
			return nil, fmt.Errorf("scan file event: %w", err)
		}

		e.Action = action.String
		e.FileType = fileType.String
		e.ToolName = toolName.String
		e.Timestamp = timestamp.String
		e.LinesAdded = int(added.Int64)
		e.LinesDeleted = int(deleted.Int64)
		e.AgentName = agentName.String
		e.LogID = logID.String
		e.RootSessionID = rootID.String
		e.ParentSessionID = parentID.String
		e.SessionStatus = status.String
		e.SessionStartedAt = startedAt.String
		e.SessionCostUSD = cost.Float64

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file events: %w", err)
	}
	return events, nil
}

// linkMetadata is the shape of the entity_links metadata JSON.
type linkMetadata struct {
	Signals  []Signal `json:"signals"`
	Commands []string `json:"commands"`
}

// FetchFeatureLinks returns feature<->session links. The links table stores
// both directions; both are projected to feature-id/session-id here.
func (db *DB) FetchFeatureLinks(ctx context.Context, projectID string) ([]FeatureLinkRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT l.source_id, l.target_id, l.confidence, l.metadata,
		       f.name, f.status, f.category
		FROM entity_links l
		JOIN features f ON f.id = l.source_id
		WHERE l.project_id = ? AND l.source_type = 'feature' AND l.target_type = 'session'
		UNION ALL
		SELECT l.target_id, l.source_id, l.confidence, l.metadata,
		       f.name, f.status, f.category
		FROM entity_links l
		JOIN features f ON f.id = l.target_id
		WHERE l.project_id = ? AND l.source_type = 'session' AND l.target_type = 'feature'
	`, projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch feature links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []FeatureLinkRow
	for rows.Next() {
		var link FeatureLinkRow
		var confidence sql.NullFloat64
		var metadata, name, status, category sql.NullString

		if err := rows.Scan(&link.FeatureID, &link.SessionID, &confidence, &metadata,
			&name, &status, &category); err != nil {
			return nil, fmt.Errorf("scan feature link: %w", err)
		}

		link.Confidence = confidence.Float64
		link.FeatureName = name.String
		link.FeatureStatus = status.String
		link.FeatureCategory = category.String

		// Malformed metadata on one link is tolerated, not fatal.
		if metadata.String != "" {
			var meta linkMetadata
			if err := json.Unmarshal([]byte(metadata.String), &meta); err == nil {
				link.Signals = meta.Signals
				link.Commands = meta.Commands
			}
		}

		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature links: %w", err)
	}
	return links, nil
}

// FetchDocuments returns the project's documents.
func (db *DB) FetchDocuments(ctx context.Context, projectID string) ([]DocumentRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, doc_type, file_path, session_id, created_at
		FROM documents
		WHERE project_id = ?
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []DocumentRow
	for rows.Next() {
		var d DocumentRow
		var title, docType, filePath, sessionID, createdAt sql.NullString
		if err := rows.Scan(&d.ID, &title, &docType, &filePath, &sessionID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Title = title.String
		d.DocType = docType.String
		d.FilePath = filePath.String
		d.SessionID = sessionID.String
		d.CreatedAt = createdAt.String
		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// FetchDocumentRefs returns the project's document path references joined to
// the referencing document.
func (db *DB) FetchDocumentRefs(ctx context.Context, projectID string) ([]DocRefRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.document_id, d.title, d.doc_type, r.file_path, r.relation, r.created_at
		FROM document_path_refs r
		LEFT JOIN documents d ON d.id = r.document_id
		WHERE r.project_id = ?
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch document refs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []DocRefRow
	for rows.Next() {
		var r DocRefRow
		var title, docType, relation, createdAt sql.NullString
		if err := rows.Scan(&r.DocumentID, &title, &docType, &r.FilePath, &relation, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document ref: %w", err)
		}
		r.Title = title.String
		r.DocType = docType.String
		r.Relation = relation.String
		r.CreatedAt = createdAt.String
		refs = append(refs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document refs: %w", err)
	}
	return refs, nil
}

// FetchSessionLogs bulk-fetches raw log entries for the given sessions.
// Rows stored with compression='zstd' are decompressed before returning.
func (db *DB) FetchSessionLogs(ctx context.Context, sessionIDs []string) ([]SessionLogRow, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, session_id, log_type, content, compression, timestamp
		FROM session_logs
		WHERE session_id IN (` + placeholders(len(sessionIDs)) + `)`
	rows, err := db.conn.QueryContext(ctx, query, toArgs(sessionIDs)...)
	if err != nil {
		return nil, fmt.Errorf("fetch session logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []SessionLogRow
	for rows.Next() {
		var l SessionLogRow
		var logType, compression, timestamp sql.NullString
		var content []byte
		if err := rows.Scan(&l.ID, &l.SessionID, &logType, &content, &compression, &timestamp); err != nil {
			return nil, fmt.Errorf("scan session log: %w", err)
		}
		l.LogType = logType.String
		l.Timestamp = timestamp.String

		decoded, err := decodeContent(content, compression.String)
		if err != nil {
			return nil, fmt.Errorf("decode log content for %s: %w", l.ID, err)
		}
		l.Content = decoded

		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session logs: %w", err)
	}
	return logs, nil
}

// FetchSessionArtifacts bulk-fetches artifacts for the given sessions.
func (db *DB) FetchSessionArtifacts(ctx context.Context, sessionIDs []string) ([]ArtifactRow, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, session_id, artifact_type, name, file_path, created_at
		FROM session_artifacts
		WHERE session_id IN (` + placeholders(len(sessionIDs)) + `)`
	rows, err := db.conn.QueryContext(ctx, query, toArgs(sessionIDs)...)
	if err != nil {
		return nil, fmt.Errorf("fetch session artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var artifacts []ArtifactRow
	for rows.Next() {
		var a ArtifactRow
		var artifactType, name, filePath, createdAt sql.NullString
		if err := rows.Scan(&a.ID, &a.SessionID, &artifactType, &name, &filePath, &createdAt); err != nil {
			return nil, fmt.Errorf("scan session artifact: %w", err)
		}
		a.ArtifactType = artifactType.String
		a.Name = name.String
		a.FilePath = filePath.String
		a.CreatedAt = createdAt.String
		artifacts = append(artifacts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session artifacts: %w", err)
	}
	return artifacts, nil
}

// decodeContent decompresses a log content blob according to its compression
// tag. An empty tag means the content is stored verbatim.
func decodeContent(content []byte, compression string) (string, error) {
	switch compression {
	case "", "none":
		return string(content), nil
	case "zstd":
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return "", fmt.Errorf("create zstd decoder: %w", err)
		}
		defer decoder.Close()
		decoded, err := decoder.DecodeAll(content, nil)
		if err != nil {
			return "", fmt.Errorf("zstd decompress: %w", err)
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf("unsupported compression %q", compression)
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS uploads (
	id           TEXT PRIMARY KEY,
	issue_id     TEXT NOT NULL,
	file_name    TEXT NOT NULL,
	file_size    INTEGER NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	asset_id     TEXT NOT NULL DEFAULT '',
	state        TEXT NOT NULL CHECK(state IN (
		'validating', 'credentials_acquired', 'storage_written', 'completed'
	)),
	failed_phase TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_uploads_issue_id ON uploads(issue_id);
CREATE INDEX IF NOT EXISTS idx_uploads_state ON uploads(state);
CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_uploads_failed
	ON uploads(failed_phase, state);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

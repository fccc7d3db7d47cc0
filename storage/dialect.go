package storage

import "fmt"

// dialect holds the statements that differ between database drivers.
type dialect struct {
	name             string
	schema           []string
	ensureSession    string
	upsertCredential string
}

var sqliteDialect = dialect{
	name: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			message_index INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			tool_call_id TEXT NOT NULL DEFAULT '',
			tool_calls TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE,
			UNIQUE(session_id, message_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session
		ON messages(session_id, message_index)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			api_key TEXT NOT NULL,
			base_url TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(tenant_id, provider)
		)`,
	},
	ensureSession: `INSERT OR IGNORE INTO sessions (session_id, tenant_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
	upsertCredential: `INSERT INTO credentials (id, tenant_id, provider, api_key, base_url, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, provider) DO UPDATE SET
			api_key = excluded.api_key,
			base_url = excluded.base_url,
			active = excluded.active,
			updated_at = excluded.updated_at`,
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id VARCHAR(64) NOT NULL PRIMARY KEY,
			tenant_id VARCHAR(128) NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			session_id VARCHAR(64) NOT NULL,
			message_index INT NOT NULL,
			role VARCHAR(16) NOT NULL,
			content LONGTEXT NOT NULL,
			name VARCHAR(128) NOT NULL DEFAULT '',
			tool_call_id VARCHAR(128) NOT NULL DEFAULT '',
			tool_calls LONGTEXT NULL,
			UNIQUE KEY uniq_session_index (session_id, message_index),
			CONSTRAINT fk_messages_session FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			tenant_id VARCHAR(128) NOT NULL,
			provider VARCHAR(32) NOT NULL,
			api_key TEXT NOT NULL,
			base_url VARCHAR(512) NOT NULL DEFAULT '',
			active TINYINT(1) NOT NULL DEFAULT 1,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			UNIQUE KEY uniq_tenant_provider (tenant_id, provider)
		)`,
	},
	ensureSession: `INSERT IGNORE INTO sessions (session_id, tenant_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
	upsertCredential: `INSERT INTO credentials (id, tenant_id, provider, api_key, base_url, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			api_key = VALUES(api_key),
			base_url = VALUES(base_url),
			active = VALUES(active),
			updated_at = VALUES(updated_at)`,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", "sqlite3", "sqlite":
		return sqliteDialect, nil
	case "mysql":
		return mysqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

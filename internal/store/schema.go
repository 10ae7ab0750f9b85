package store

// schemaStatements bootstrap the schema idempotently. The shared
// database may predate this process, so every statement must be safe to
// re-run against an existing installation.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS event_requests (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		external_id VARCHAR(64) NOT NULL,
		organization_name VARCHAR(255) NOT NULL DEFAULT '',
		contact_name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(32) NOT NULL DEFAULT '',
		location VARCHAR(255) NOT NULL DEFAULT '',
		expected_attendance INT NOT NULL DEFAULT 0,
		notes TEXT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'new',
		event_date DATE NULL,
		submitted_on DATETIME NULL,
		sheet_row_index INT NOT NULL DEFAULT 0,
		last_app_content_hash VARCHAR(64) NOT NULL DEFAULT '',
		last_sheet_content_hash VARCHAR(64) NOT NULL DEFAULT '',
		last_pushed_to_sheet_at DATETIME NULL,
		last_pulled_from_sheet_at DATETIME NULL,
		last_synced_at DATETIME NULL,
		sync_status VARCHAR(16) NOT NULL DEFAULT 'unsynced',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_event_requests_external_id (external_id),
		KEY idx_event_requests_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS projects (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		external_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		owner VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL DEFAULT '',
		target_date DATE NULL,
		sub_tasks JSON NULL,
		internal_notes TEXT NULL,
		sheet_row_index INT NOT NULL DEFAULT 0,
		last_app_content_hash VARCHAR(64) NOT NULL DEFAULT '',
		last_sheet_content_hash VARCHAR(64) NOT NULL DEFAULT '',
		last_pushed_to_sheet_at DATETIME NULL,
		last_pulled_from_sheet_at DATETIME NULL,
		last_synced_at DATETIME NULL,
		sync_status VARCHAR(16) NOT NULL DEFAULT 'unsynced',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_projects_external_id (external_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS sync_runs (
		run_id CHAR(36) NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NULL,
		acquired TINYINT(1) NOT NULL DEFAULT 0,
		completed INT NOT NULL DEFAULT 0,
		error TEXT NULL,
		project_stats JSON NULL,
		event_stats JSON NULL,
		PRIMARY KEY (run_id),
		KEY idx_sync_runs_started_at (started_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Package sqlite provides the SQLite-backed tenant store: per-tenant
// database handles resolved through a directory, and one repository per
// entity variant. Writes are idempotent (keyed upserts) so the pipeline stays
// correct under at-least-once redelivery from the source log.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/fynarfin/ph-ee-importer-rdbms/dispatch"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	workflow_instance_key INTEGER NOT NULL,
	workflow_key          INTEGER NOT NULL,
	timestamp             INTEGER NOT NULL,
	intent                TEXT NOT NULL DEFAULT '',
	record_type           TEXT NOT NULL DEFAULT '',
	type                  TEXT NOT NULL DEFAULT '',
	element_id            TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (workflow_instance_key, element_id, timestamp)
);
CREATE TABLE IF NOT EXISTS variables (
	workflow_instance_key INTEGER NOT NULL,
	workflow_key          INTEGER NOT NULL,
	timestamp             INTEGER NOT NULL,
	name                  TEXT NOT NULL,
	value                 TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (workflow_instance_key, name, timestamp)
);
CREATE TABLE IF NOT EXISTS incidents (
	workflow_instance_key INTEGER NOT NULL,
	timestamp             INTEGER NOT NULL,
	flow_id               TEXT NOT NULL DEFAULT '',
	flow_type             TEXT NOT NULL DEFAULT '',
	error_type            TEXT NOT NULL DEFAULT '',
	error_message         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (workflow_instance_key, timestamp)
);
CREATE TABLE IF NOT EXISTS process_instances (
	workflow_instance_key INTEGER NOT NULL,
	workflow_key          INTEGER NOT NULL,
	timestamp             INTEGER NOT NULL,
	flow_id               TEXT NOT NULL DEFAULT '',
	flow_type             TEXT NOT NULL DEFAULT '',
	element_id            TEXT NOT NULL DEFAULT '',
	element_type          TEXT NOT NULL DEFAULT '',
	intent                TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (workflow_instance_key, element_id, intent, timestamp)
);
CREATE TABLE IF NOT EXISTS event_timestamps (
	workflow_instance_key INTEGER NOT NULL,
	exported_time         TEXT NOT NULL DEFAULT '',
	imported_time         TEXT NOT NULL DEFAULT '',
	engine_time           TEXT NOT NULL DEFAULT ''
);
`

// Store wraps one tenant's database handle.
type Store struct {
	sqlDB *sql.DB
}

// Repositories routes entity saves onto a batch transaction. The statements
// are tenant-agnostic; the transaction carries the tenant scope.
type Repositories struct{}

// Open opens (creating if needed) a tenant database and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// DB exposes the underlying handle for transactional batch commits.
func (s *Store) DB() *sql.DB {
	return s.sqlDB
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveTask upserts one task execution row.
func (Repositories) SaveTask(ctx context.Context, tx *sql.Tx, task dispatch.TaskRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (workflow_instance_key, workflow_key, timestamp, intent, record_type, type, element_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (workflow_instance_key, element_id, timestamp) DO UPDATE SET
			workflow_key = excluded.workflow_key,
			intent = excluded.intent,
			record_type = excluded.record_type,
			type = excluded.type`,
		task.WorkflowInstanceKey, task.WorkflowKey, task.Timestamp,
		task.Intent, task.RecordType, task.Type, task.ElementID,
	)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// SaveVariable upserts one variable value row.
func (Repositories) SaveVariable(ctx context.Context, tx *sql.Tx, variable dispatch.VariableRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO variables (workflow_instance_key, workflow_key, timestamp, name, value)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (workflow_instance_key, name, timestamp) DO UPDATE SET
			workflow_key = excluded.workflow_key,
			value = excluded.value`,
		variable.WorkflowInstanceKey, variable.WorkflowKey, variable.Timestamp,
		variable.Name, variable.Value,
	)
	if err != nil {
		return fmt.Errorf("save variable: %w", err)
	}
	return nil
}

// SaveIncident upserts one incident row.
func (Repositories) SaveIncident(ctx context.Context, tx *sql.Tx, incident dispatch.IncidentRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO incidents (workflow_instance_key, timestamp, flow_id, flow_type, error_type, error_message)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (workflow_instance_key, timestamp) DO UPDATE SET
			flow_id = excluded.flow_id,
			flow_type = excluded.flow_type,
			error_type = excluded.error_type,
			error_message = excluded.error_message`,
		incident.WorkflowInstanceKey, incident.Timestamp, incident.FlowID,
		incident.FlowType, incident.ErrorType, incident.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("save incident: %w", err)
	}
	return nil
}

// SaveInstance upserts one process-instance lifecycle row.
func (Repositories) SaveInstance(ctx context.Context, tx *sql.Tx, instance dispatch.InstanceRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO process_instances (workflow_instance_key, workflow_key, timestamp, flow_id, flow_type, element_id, element_type, intent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (workflow_instance_key, element_id, intent, timestamp) DO UPDATE SET
			workflow_key = excluded.workflow_key,
			flow_id = excluded.flow_id,
			flow_type = excluded.flow_type,
			element_type = excluded.element_type`,
		instance.WorkflowInstanceKey, instance.WorkflowKey, instance.Timestamp,
		instance.FlowID, instance.FlowType, instance.ElementID,
		instance.ElementType, instance.Intent,
	)
	if err != nil {
		return fmt.Errorf("save instance: %w", err)
	}
	return nil
}

// SaveTimestamp appends one bookkeeping row; duplicates are harmless.
func (Repositories) SaveTimestamp(ctx context.Context, tx *sql.Tx, ts dispatch.TimestampRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO event_timestamps (workflow_instance_key, exported_time, imported_time, engine_time)
		 VALUES (?, ?, ?, ?)`,
		ts.WorkflowInstanceKey, ts.ExportedTime, ts.ImportedTime, ts.EngineTime,
	)
	if err != nil {
		return fmt.Errorf("save event timestamps: %w", err)
	}
	return nil
}

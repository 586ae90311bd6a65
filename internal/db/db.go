package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a project or launch record does not exist
var ErrNotFound = errors.New("record not found")

// DB represents the database with separate read/write pools
type DB struct {
	write *sql.DB
	read  *sql.DB
	path  string
}

// New creates a new database instance with separate read/write pools
func New(ctx context.Context, dbPath string) (*DB, error) {
	// Connection string with pragmas
	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)

	// Write pool: MUST be 1 connection only
	write, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open write connection: %w", err)
	}
	write.SetMaxOpenConns(1)
	write.SetMaxIdleConns(1)
	write.SetConnMaxIdleTime(time.Minute)
	write.SetConnMaxLifetime(time.Hour)

	// Read pool: Can have multiple connections
	read, err := sql.Open("sqlite", connStr)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("open read connection: %w", err)
	}
	read.SetMaxOpenConns(10)
	read.SetMaxIdleConns(5)
	read.SetConnMaxIdleTime(time.Minute)
	read.SetConnMaxLifetime(time.Hour)

	db := &DB{
		write: write,
		read:  read,
		path:  dbPath,
	}

	if err := db.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes both database connections
func (db *DB) Close() error {
	writeErr := db.write.Close()
	readErr := db.read.Close()
	if writeErr != nil {
		return writeErr
	}
	return readErr
}

// Path returns the database file location
func (db *DB) Path() string {
	return db.path
}

// initSchema creates the schema if it doesn't exist
func (db *DB) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    root_path TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS launches (
    launch_id TEXT PRIMARY KEY,
    executable TEXT NOT NULL,
    version TEXT,
    args TEXT,
    context TEXT,
    file_to_open TEXT,
    launched_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_launches_date ON launches(launched_at);

CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    description TEXT
);

INSERT OR IGNORE INTO schema_migrations (version, description) VALUES (1, 'projects and launches');
	`

	if _, err := db.write.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Project is a pipeline project registered with a root directory on disk
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	RootPath  string    `json:"root_path"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateProject registers a new project and fills in its ID
func (db *DB) CreateProject(ctx context.Context, project *Project) error {
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}

	result, err := db.write.ExecContext(ctx,
		`INSERT INTO projects (name, root_path, created_at) VALUES (?, ?, ?)`,
		project.Name, project.RootPath, project.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("read project id: %w", err)
	}
	project.ID = id

	return nil
}

// GetProject retrieves a project by name
func (db *DB) GetProject(ctx context.Context, name string) (*Project, error) {
	var p Project
	err := db.read.QueryRowContext(ctx,
		`SELECT id, name, root_path, created_at FROM projects WHERE name = ?`, name,
	).Scan(&p.ID, &p.Name, &p.RootPath, &p.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}

	return &p, nil
}

// ListProjects retrieves all projects ordered by name
func (db *DB) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := db.read.QueryContext(ctx,
		`SELECT id, name, root_path, created_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.RootPath, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return projects, nil
}

// DeleteProject removes a project by name
func (db *DB) DeleteProject(ctx context.Context, name string) error {
	result, err := db.write.ExecContext(ctx, "DELETE FROM projects WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("project %s: %w", name, ErrNotFound)
	}

	return nil
}

// Launch records one start of the host application
type Launch struct {
	LaunchID   string    `json:"launch_id"`
	Executable string    `json:"executable"`
	Version    string    `json:"version"`
	Args       []string  `json:"args"`
	Context    string    `json:"context"`
	FileToOpen string    `json:"file_to_open,omitempty"`
	LaunchedAt time.Time `json:"launched_at"`
}

// RecordLaunch stores a launch history entry
func (db *DB) RecordLaunch(ctx context.Context, launch *Launch) error {
	argsJSON, err := json.Marshal(launch.Args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}

	_, err = db.write.ExecContext(ctx, `
INSERT INTO launches (launch_id, executable, version, args, context, file_to_open, launched_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		launch.LaunchID,
		launch.Executable,
		launch.Version,
		string(argsJSON),
		launch.Context,
		launch.FileToOpen,
		launch.LaunchedAt,
	)
	if err != nil {
		return fmt.Errorf("insert launch: %w", err)
	}

	return nil
}

// ListLaunches returns the most recent launches, newest first.
// A limit <= 0 returns every record.
func (db *DB) ListLaunches(ctx context.Context, limit int) ([]Launch, error) {
	query := `
SELECT launch_id, executable, version, args, context, file_to_open, launched_at
FROM launches ORDER BY launched_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query launches: %w", err)
	}
	defer rows.Close()

	var launches []Launch
	for rows.Next() {
		var l Launch
		var argsJSON string
		if err := rows.Scan(&l.LaunchID, &l.Executable, &l.Version, &argsJSON, &l.Context, &l.FileToOpen, &l.LaunchedAt); err != nil {
			return nil, fmt.Errorf("scan launch: %w", err)
		}
		if err := json.Unmarshal([]byte(argsJSON), &l.Args); err != nil {
			return nil, fmt.Errorf("unmarshal args: %w", err)
		}
		launches = append(launches, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return launches, nil
}

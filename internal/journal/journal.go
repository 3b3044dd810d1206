// Package journal records symbol attachments in a SQLite database so they
// outlive a single symfile invocation.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/goretk/symfile"
)

//go:embed schema.sql
var schemaSQL string

// Record is one journaled attachment.
type Record struct {
	Seq          int64     `json:"seq" yaml:"seq"`
	Kind         string    `json:"kind" yaml:"kind"`
	ImagePath    string    `json:"image_path" yaml:"image_path"`
	ImageArch    string    `json:"image_arch" yaml:"image_arch"`
	ImageUUID    string    `json:"image_uuid" yaml:"image_uuid"`
	SourcePath   string    `json:"source_path" yaml:"source_path"`
	SourceUUID   string    `json:"source_uuid" yaml:"source_uuid"`
	SourceFormat string    `json:"source_format" yaml:"source_format"`
	Replaced     bool      `json:"replaced" yaml:"replaced"`
	AttachedAt   time.Time `json:"attached_at" yaml:"attached_at"`
}

// Journal is a SQLite backed attachment log. It implements
// symfile.Observer.
type Journal struct {
	db *sql.DB
}

var _ symfile.Observer = (*Journal)(nil)

// Open creates or opens the journal at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// SymbolsChanged records the event.
func (j *Journal) SymbolsChanged(ev symfile.Event) error {
	return j.Record(context.Background(), FromEvent(ev))
}

// FromEvent converts a change event to a record.
func FromEvent(ev symfile.Event) Record {
	return Record{
		Seq:          ev.Seq,
		Kind:         ev.Kind.String(),
		ImagePath:    ev.Image.Path,
		ImageArch:    ev.Image.Arch,
		ImageUUID:    ev.Image.Identifier.String(),
		SourcePath:   ev.Source.Path,
		SourceUUID:   ev.Source.Identifier.String(),
		SourceFormat: ev.Source.Format.String(),
		Replaced:     ev.Previous != nil,
		AttachedAt:   ev.Time,
	}
}

// Record appends r to the journal.
func (j *Journal) Record(ctx context.Context, r Record) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO attachments
			(seq, kind, image_path, image_arch, image_uuid, source_path, source_uuid, source_format, replaced, attached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Seq, r.Kind, r.ImagePath, r.ImageArch, r.ImageUUID,
		r.SourcePath, r.SourceUUID, r.SourceFormat, r.Replaced, r.AttachedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attachment: %w", err)
	}
	return nil
}

// LastSeq returns the highest recorded sequence number, 0 for an empty
// journal.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM attachments`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read last sequence number: %w", err)
	}
	return seq.Int64, nil
}

// History returns the most recent records, oldest first. A limit of zero or
// less returns everything.
func (j *Journal) History(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, kind, image_path, image_arch, image_uuid, source_path, source_uuid, source_format, replaced, attached_at
		FROM (SELECT * FROM attachments ORDER BY seq DESC, id DESC LIMIT ?)
		ORDER BY seq ASC, id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var at int64
		if err := rows.Scan(&r.Seq, &r.Kind, &r.ImagePath, &r.ImageArch, &r.ImageUUID,
			&r.SourcePath, &r.SourceUUID, &r.SourceFormat, &r.Replaced, &at); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.AttachedAt = time.Unix(0, at)
		records = append(records, r)
	}
	return records, rows.Err()
}

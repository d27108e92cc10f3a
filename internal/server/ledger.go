package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// UploadRecord is one ledger row: a stored raw upload and what became of
// its conversion.
type UploadRecord struct {
	ID              uuid.UUID `json:"id"`
	Stem            string    `json:"stem"`
	RawPath         string    `json:"raw_path"`
	RawBytes        int64     `json:"raw_bytes"`
	ConvertedPath   string    `json:"converted_path,omitempty"`
	Points          int       `json:"points"`
	ConversionError string    `json:"conversion_error,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Ledger records processed uploads. Writes are best effort: a failing
// ledger never fails an upload.
type Ledger interface {
	Record(ctx context.Context, rec UploadRecord) error
	Recent(ctx context.Context, limit int) ([]UploadRecord, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// OpenDB opens a PostgreSQL connection pool using DATABASE_URL.
func OpenDB(databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Validate connectivity immediately.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// PostgresLedger stores upload records in the uploads table.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger wraps an open database whose schema is migrated.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Record(ctx context.Context, rec UploadRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO uploads
			(id, stem, raw_path, raw_bytes, converted_path, points, conversion_error, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID,
		rec.Stem,
		rec.RawPath,
		rec.RawBytes,
		nullString(rec.ConvertedPath),
		rec.Points,
		nullString(rec.ConversionError),
		nullString(rec.RequestID),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload %s: %w", rec.Stem, err)
	}
	return nil
}

func (l *PostgresLedger) Recent(ctx context.Context, limit int) ([]UploadRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, stem, raw_path, raw_bytes, converted_path, points, conversion_error, request_id, created_at
		FROM uploads
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	out := make([]UploadRecord, 0, limit)
	for rows.Next() {
		var (
			rec                           UploadRecord
			converted, convErr, requestID sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Stem,
			&rec.RawPath,
			&rec.RawBytes,
			&converted,
			&rec.Points,
			&convErr,
			&requestID,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		rec.ConvertedPath = converted.String
		rec.ConversionError = convErr.String
		rec.RequestID = requestID.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *PostgresLedger) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM uploads WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune uploads: %w", err)
	}
	return res.RowsAffected()
}

func (l *PostgresLedger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// MetadataDB is the SQLite catalog of completed transcripts. Job lifecycle
// state lives in memory only; the catalog records finished artifacts so
// they stay listable across restarts.
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB opens (creating if necessary) the catalog database.
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		request_name TEXT NOT NULL,
		source_type TEXT NOT NULL,
		language TEXT,
		confidence REAL,
		speaker_count INTEGER,
		word_count INTEGER,
		local_path TEXT NOT NULL,
		gdrive_url TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
	CREATE INDEX IF NOT EXISTS idx_request_name ON transcripts(request_name);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveTranscript records a completed transcript. confidence may be nil when
// the provider did not report one.
func (mdb *MetadataDB) SaveTranscript(
	jobID, requestName, sourceType, language string,
	confidence *float64, speakerCount, wordCount int,
	localPath, gdriveURL string,
) error {
	query := `
	INSERT INTO transcripts (job_id, request_name, source_type, language, confidence, speaker_count, word_count, local_path, gdrive_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := mdb.db.Exec(query, jobID, requestName, sourceType, language,
		confidence, speakerCount, wordCount, localPath, gdriveURL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save transcript metadata: %v", err)
	}

	return nil
}

// GetTranscript retrieves catalog metadata for one job id.
func (mdb *MetadataDB) GetTranscript(jobID string) (map[string]interface{}, error) {
	query := `
	SELECT job_id, request_name, source_type, language, confidence, speaker_count, word_count, local_path, gdrive_url, created_at
	FROM transcripts WHERE job_id = ?
	`

	row := mdb.db.QueryRow(query, jobID)
	record, err := scanTranscript(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %v", err)
	}
	return record, nil
}

// ListTranscripts returns the newest transcripts, most recent first.
func (mdb *MetadataDB) ListTranscripts(limit int) ([]map[string]interface{}, error) {
	query := `
	SELECT job_id, request_name, source_type, language, confidence, speaker_count, word_count, local_path, gdrive_url, created_at
	FROM transcripts ORDER BY created_at DESC LIMIT ?
	`

	rows, err := mdb.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %v", err)
	}
	defer rows.Close()

	var transcripts []map[string]interface{}
	for rows.Next() {
		record, err := scanTranscript(rows.Scan)
		if err != nil {
			continue
		}
		transcripts = append(transcripts, record)
	}

	return transcripts, rows.Err()
}

// scanTranscript maps one catalog row into the JSON-friendly shape handlers
// return.
func scanTranscript(scan func(dest ...any) error) (map[string]interface{}, error) {
	var (
		jobID, name, source, localPath string
		language, gdriveURL            sql.NullString
		confidence                     sql.NullFloat64
		speakerCount, wordCount        int
		createdAt                      time.Time
	)

	err := scan(&jobID, &name, &source, &language, &confidence,
		&speakerCount, &wordCount, &localPath, &gdriveURL, &createdAt)
	if err != nil {
		return nil, err
	}

	record := map[string]interface{}{
		"job_id":        jobID,
		"request_name":  name,
		"source_type":   source,
		"language":      language.String,
		"speaker_count": speakerCount,
		"word_count":    wordCount,
		"local_path":    localPath,
		"gdrive_url":    gdriveURL.String,
		"created_at":    createdAt,
	}
	if confidence.Valid {
		record["confidence"] = confidence.Float64
	}
	return record, nil
}

// Close closes the database connection.
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}

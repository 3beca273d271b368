package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/spec/internal/errors"
)

// Default and maximum page sizes for journal queries.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
)

// Entry kinds.
const (
	KindCreate = "create"
	KindMerge  = "merge"
)

// Feature records one `spec create`.
type Feature struct {
	ID          string `json:"id"`
	RepoRoot    string `json:"repo_root"`
	Slug        string `json:"slug"`
	Branch      string `json:"branch"`
	Description string `json:"description"`
	CommitHash  string `json:"commit_hash"`
	Attempts    int    `json:"attempts"`
	CreatedAt   int64  `json:"created_at"`
}

// Merge records one `spec merge`.
type Merge struct {
	ID        string `json:"id"`
	RepoRoot  string `json:"repo_root"`
	Slug      string `json:"slug"`
	Target    string `json:"target"`
	MergeHash string `json:"merge_hash"`
	CreatedAt int64  `json:"created_at"`
}

// Entry is one row of the combined create/merge history.
type Entry struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Ref       string `json:"ref"`  // branch for creates, target for merges
	Hash      string `json:"hash"` // commit hash for creates, merge hash for merges
	CreatedAt int64  `json:"created_at"`
}

// NewID generates a new ULID.
func NewID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// fill assigns an ID and timestamp when they are unset.
func fill(id *string, createdAt *int64) error {
	if *id == "" {
		newID, err := NewID()
		if err != nil {
			return errors.NewInternal(err)
		}
		*id = newID
	}
	if *createdAt == 0 {
		*createdAt = time.Now().Unix()
	}
	return nil
}

// InsertFeature stores a feature record. ID and CreatedAt are filled in when zero.
func InsertFeature(ctx context.Context, db *sql.DB, f *Feature) error {
	if err := fill(&f.ID, &f.CreatedAt); err != nil {
		return err
	}

	query := `
		INSERT INTO features (
			id, repo_root, slug, branch, description, commit_hash, attempts, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		f.ID, f.RepoRoot, f.Slug, f.Branch, f.Description, f.CommitHash, f.Attempts, f.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// InsertMerge stores a merge record. ID and CreatedAt are filled in when zero.
func InsertMerge(ctx context.Context, db *sql.DB, m *Merge) error {
	if err := fill(&m.ID, &m.CreatedAt); err != nil {
		return err
	}

	query := `
		INSERT INTO merges (id, repo_root, slug, target, merge_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query, m.ID, m.RepoRoot, m.Slug, m.Target, m.MergeHash, m.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetFeature returns the most recent create record for slug in repoRoot.
func GetFeature(ctx context.Context, db *sql.DB, repoRoot, slug string) (*Feature, error) {
	query := `
		SELECT id, repo_root, slug, branch, description, commit_hash, attempts, created_at
		FROM features
		WHERE repo_root = ? AND slug = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var f Feature
	err := db.QueryRowContext(ctx, query, repoRoot, slug).Scan(
		&f.ID, &f.RepoRoot, &f.Slug, &f.Branch, &f.Description, &f.CommitHash, &f.Attempts, &f.CreatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(fmt.Sprintf("no journal entry for feature '%s'", slug))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &f, nil
}

// ListFeatures returns create records for repoRoot, newest first.
func ListFeatures(ctx context.Context, db *sql.DB, repoRoot string, limit int) ([]Feature, error) {
	query := `
		SELECT id, repo_root, slug, branch, description, commit_hash, attempts, created_at
		FROM features
		WHERE repo_root = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, repoRoot, clampLimit(limit))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	features := []Feature{}
	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.ID, &f.RepoRoot, &f.Slug, &f.Branch, &f.Description,
			&f.CommitHash, &f.Attempts, &f.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return features, nil
}

// History returns creates and merges for repoRoot, newest first.
func History(ctx context.Context, db *sql.DB, repoRoot string, limit int) ([]Entry, error) {
	query := `
		SELECT kind, id, slug, ref, hash, created_at FROM (
			SELECT 'create' AS kind, id, slug, branch AS ref, commit_hash AS hash, created_at
			FROM features WHERE repo_root = ?
			UNION ALL
			SELECT 'merge' AS kind, id, slug, target AS ref, merge_hash AS hash, created_at
			FROM merges WHERE repo_root = ?
		)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, repoRoot, repoRoot, clampLimit(limit))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Kind, &e.ID, &e.Slug, &e.Ref, &e.Hash, &e.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

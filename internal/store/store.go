// Package store persists the two uploaded invoice assets (logo and stamp):
// blobs on disk, metadata in a SQLite registry. Uploading an asset of a kind
// replaces the previous one.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Kind identifies one of the two asset slots.
type Kind string

const (
	KindLogo  Kind = "logo"
	KindStamp Kind = "stamp"
)

// MaxAssetSize limits uploaded assets to 5MB.
const MaxAssetSize = 5 << 20

// Sentinel errors for store operations.
var (
	ErrUnknownKind  = errors.New("unknown asset kind")
	ErrEmptyContent = errors.New("asset content cannot be empty")
	ErrTooLarge     = errors.New("asset exceeds maximum size")
)

// StoredAsset describes one stored upload.
type StoredAsset struct {
	Kind         Kind      `json:"kind"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	URL          string    `json:"url"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Store owns the blob directory and the SQLite registry.
type Store struct {
	db     *sql.DB
	dir    string
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS assets (
	kind          TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	original_name TEXT NOT NULL,
	url           TEXT NOT NULL,
	uploaded_at   TIMESTAMP NOT NULL
);`

// Open creates the blob directory if needed, opens the registry, and applies
// the schema. WAL mode keeps concurrent reads cheap while an upload writes.
func Open(dir, dbPath string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening asset registry: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging asset registry: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating asset registry: %w", err)
	}

	logger.Info("asset store opened",
		zap.String("dir", dir),
		zap.String("db", dbPath))

	return &Store{db: db, dir: dir, logger: logger}, nil
}

// Close releases the registry connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ValidKind reports whether the kind names an asset slot.
func ValidKind(k Kind) bool {
	return k == KindLogo || k == KindStamp
}

// Put stores a new asset of the given kind, replacing any previous one. The
// blob lands on disk under a unique name derived from the kind; the returned
// asset carries the URL path the server exposes it under.
func (s *Store) Put(kind Kind, originalName string, content []byte) (*StoredAsset, error) {
	if !ValidKind(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}
	if len(content) > MaxAssetSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(content), MaxAssetSize)
	}

	prev, err := s.Get(kind)
	if err != nil {
		return nil, err
	}

	filename := string(kind) + "-" + uuid.NewString() + safeExt(originalName)
	blobPath := filepath.Join(s.dir, filename)
	if err := os.WriteFile(blobPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("writing asset blob: %w", err)
	}

	asset := &StoredAsset{
		Kind:         kind,
		Filename:     filename,
		OriginalName: originalName,
		URL:          "/uploads/" + filename,
		UploadedAt:   time.Now().UTC(),
	}

	_, err = s.db.Exec(`
		INSERT INTO assets (kind, filename, original_name, url, uploaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET
			filename = excluded.filename,
			original_name = excluded.original_name,
			url = excluded.url,
			uploaded_at = excluded.uploaded_at`,
		string(asset.Kind), asset.Filename, asset.OriginalName, asset.URL, asset.UploadedAt)
	if err != nil {
		_ = os.Remove(blobPath)
		return nil, fmt.Errorf("registering asset: %w", err)
	}

	// The replaced blob is unreferenced now; keep the directory tidy.
	if prev != nil && prev.Filename != asset.Filename {
		if rmErr := os.Remove(filepath.Join(s.dir, prev.Filename)); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("removing replaced asset blob",
				zap.String("filename", prev.Filename),
				zap.Error(rmErr))
		}
	}

	s.logger.Info("asset stored",
		zap.String("kind", string(kind)),
		zap.String("filename", filename),
		zap.Int("size", len(content)))

	return asset, nil
}

// Get returns the stored asset of the given kind, or nil when none exists.
func (s *Store) Get(kind Kind) (*StoredAsset, error) {
	if !ValidKind(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	row := s.db.QueryRow(`
		SELECT kind, filename, original_name, url, uploaded_at
		FROM assets WHERE kind = ?`, string(kind))

	var a StoredAsset
	var k string
	err := row.Scan(&k, &a.Filename, &a.OriginalName, &a.URL, &a.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading asset registry: %w", err)
	}
	a.Kind = Kind(k)
	return &a, nil
}

// All returns both asset slots; absent kinds map to nil.
func (s *Store) All() (map[Kind]*StoredAsset, error) {
	out := map[Kind]*StoredAsset{KindLogo: nil, KindStamp: nil}
	for kind := range out {
		a, err := s.Get(kind)
		if err != nil {
			return nil, err
		}
		out[kind] = a
	}
	return out, nil
}

// Clear removes both assets: registry rows and blobs.
func (s *Store) Clear() error {
	all, err := s.All()
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(`DELETE FROM assets`); err != nil {
		return fmt.Errorf("clearing asset registry: %w", err)
	}

	for _, a := range all {
		if a == nil {
			continue
		}
		if rmErr := os.Remove(filepath.Join(s.dir, a.Filename)); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("removing cleared asset blob",
				zap.String("filename", a.Filename),
				zap.Error(rmErr))
		}
	}

	s.logger.Info("asset store cleared")
	return nil
}

// BlobDir returns the directory stored blobs are served from.
func (s *Store) BlobDir() string {
	return s.dir
}

// safeExt extracts a filesystem-safe extension from an uploaded filename.
// Anything suspicious degrades to no extension rather than an error.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 10 || strings.ContainsAny(ext, "/\\\x00") {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

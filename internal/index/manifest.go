package index

import (
	"time"

	"github.com/afylking/streamid/internal/database"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// Manifest is an audit-log row recording one index build: its dimensions,
// the source fingerprint file it was derived from, and where its binary
// key-array cache lives on disk. It is bookkeeping about a build, not the
// build's key/back-pointer arrays, which stay in the flat file Save/Load
// read and write.
type Manifest struct {
	ID         string `gorm:"primaryKey"`
	W          int
	K          int
	N          int
	LeafSize   int
	SourceHash string
	BinaryPath string
	CreatedAt  time.Time
}

// ManifestStore persists build manifests to a sqlite-backed history table.
type ManifestStore struct {
	db *database.DB
}

// NewManifestStore wraps an already-open database and ensures the manifest
// schema is migrated.
func NewManifestStore(db *database.DB) (*ManifestStore, error) {
	if err := db.AutoMigrate(&Manifest{}); err != nil {
		return nil, err
	}
	return &ManifestStore{db: db}, nil
}

// Record inserts a new manifest row for a completed index build.
func (s *ManifestStore) Record(ix *Index, sourceHash, binaryPath string) (*Manifest, error) {
	m := &Manifest{
		ID:         ulid.Make().String(),
		W:          ix.W(),
		K:          ix.K(),
		N:          ix.Len(),
		LeafSize:   ix.leafSize,
		SourceHash: sourceHash,
		BinaryPath: binaryPath,
		CreatedAt:  time.Now(),
	}
	if err := s.db.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// History returns all recorded manifests, most recent first.
func (s *ManifestStore) History() ([]Manifest, error) {
	var rows []Manifest
	err := s.db.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// Latest returns the most recently recorded manifest, or (nil, gorm.ErrRecordNotFound)
// if the history is empty.
func (s *ManifestStore) Latest() (*Manifest, error) {
	var m Manifest
	err := s.db.Order("created_at DESC").First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, err
	}
	return &m, nil
}

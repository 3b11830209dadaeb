// Package etl persists every pipeline stage of an invoice as an
// immutable, replayable JSON snapshot. One file exists per
// (invoice, stage) pair; re-storing a stage overwrites its checkpoint.
package etl

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Stage names one checkpoint of the extraction pipeline.
type Stage string

const (
	StageRawOCR    Stage = "raw_ocr"
	StageParsed    Stage = "parsed"
	StageValidated Stage = "validated"
	StageCorrected Stage = "corrected"
)

// Stages lists all stages in pipeline order.
func Stages() []Stage {
	return []Stage{StageRawOCR, StageParsed, StageValidated, StageCorrected}
}

// ValidStage reports whether s is a known stage name.
func ValidStage(s Stage) bool {
	switch s {
	case StageRawOCR, StageParsed, StageValidated, StageCorrected:
		return true
	default:
		return false
	}
}

// ErrNotFound is returned when no snapshot exists for a
// (stage, invoice) pair.
var ErrNotFound = errors.New("stage snapshot not found")

// Envelope wraps every stored payload with its provenance metadata.
type Envelope struct {
	InvoiceID string          `json:"invoice_id"`
	Stage     Stage           `json:"stage"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Store is the append-only, per-invoice, per-stage snapshot store.
type Store interface {
	// Store persists the payload for the (stage, invoiceID) pair,
	// overwriting any prior snapshot for that pair, and returns the
	// snapshot location.
	Store(stage Stage, invoiceID string, payload any) (string, error)

	// Load retrieves the snapshot for the pair, or ErrNotFound.
	Load(stage Stage, invoiceID string) (*Envelope, error)

	// LoadAll returns every stored stage for the invoice, forming the
	// reconstructable pipeline trace.
	LoadAll(invoiceID string) (map[Stage]*Envelope, error)

	// List enumerates all invoice IDs present in the store.
	List() ([]string, error)
}

// FileStore keeps one JSON file per (invoice, stage) under a root
// directory: <root>/<invoiceID>/<stage>.json. Writes for different
// pairs never collide, so no locking is needed.
type FileStore struct {
	root string
	now  func() time.Time
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("stage store directory is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create stage store root: %w", err)
	}
	return &FileStore{root: dir, now: time.Now}, nil
}

func (s *FileStore) path(stage Stage, invoiceID string) string {
	return filepath.Join(s.root, sanitizeID(invoiceID), string(stage)+".json")
}

// sanitizeID keeps invoice IDs filesystem-safe.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

// Store implements Store.
func (s *FileStore) Store(stage Stage, invoiceID string, payload any) (string, error) {
	if !ValidStage(stage) {
		return "", fmt.Errorf("unknown stage %q", stage)
	}
	if invoiceID == "" {
		return "", errors.New("invoice ID is empty")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", stage, err)
	}
	env := Envelope{
		InvoiceID: invoiceID,
		Stage:     stage,
		Timestamp: s.now().UTC(),
		Data:      data,
	}
	blob, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s envelope: %w", stage, err)
	}

	location := s.path(stage, invoiceID)
	if err := os.MkdirAll(filepath.Dir(location), 0o750); err != nil {
		return "", fmt.Errorf("create invoice dir: %w", err)
	}
	if err := os.WriteFile(location, blob, 0o600); err != nil {
		return "", fmt.Errorf("write %s snapshot: %w", stage, err)
	}
	slog.Debug("Stored stage snapshot", "invoice_id", invoiceID, "stage", stage, "location", location)
	return location, nil
}

// Load implements Store.
func (s *FileStore) Load(stage Stage, invoiceID string) (*Envelope, error) {
	if !ValidStage(stage) {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	blob, err := os.ReadFile(s.path(stage, invoiceID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", invoiceID, stage, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s snapshot: %w", stage, err)
	}
	var env Envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", stage, err)
	}
	return &env, nil
}

// LoadAll implements Store.
func (s *FileStore) LoadAll(invoiceID string) (map[Stage]*Envelope, error) {
	trace := make(map[Stage]*Envelope)
	for _, stage := range Stages() {
		env, err := s.Load(stage, invoiceID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		trace[stage] = env
	}
	return trace, nil
}

// List implements Store.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read stage store root: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

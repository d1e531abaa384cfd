package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/schema"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrCorrupt  = errors.New("record is corrupt")
)

// Store persists whole call records keyed by call_id. Save replaces the
// stored record atomically.
type Store interface {
	Load(ctx context.Context, id string) (*record.CallRecord, error)
	Save(ctx context.Context, rec *record.CallRecord) error
	List(ctx context.Context) ([]string, error)
}

// Decode parses a persisted record and re-validates its facets. Any failure
// is reported as ErrCorrupt.
func Decode(id string, data []byte) (*record.CallRecord, error) {
	var rec record.CallRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}

	if rec.ID() != id {
		return nil, fmt.Errorf("%w: %s: stored call_id is %q", ErrCorrupt, id, rec.ID())
	}

	if err := schema.CheckRecord(&rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}

	if rec.RawOracleOutputs == nil {
		rec.RawOracleOutputs = map[string]any{}
	}

	return &rec, nil
}

// Encode renders a record for persistence. It refuses anything Decode would
// later report as corrupt.
func Encode(rec *record.CallRecord) ([]byte, error) {
	if rec == nil || len(rec.ID()) == 0 {
		return nil, errors.New("record has no call_id")
	}

	if err := schema.CheckRecord(rec); err != nil {
		return nil, fmt.Errorf("record %s fails validation: %w", rec.ID(), err)
	}

	return json.MarshalIndent(rec, "", "  ")
}

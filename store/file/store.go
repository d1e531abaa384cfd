package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/store"
)

const ext = ".json"

type fileStore struct {
	options store.Options
	dir     string
}

func (s *fileStore) Load(ctx context.Context, id string) (*record.CallRecord, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, id)
	}

	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return store.Decode(id, data)
}

func (s *fileStore) Save(ctx context.Context, rec *record.CallRecord) error {
	data, err := store.Encode(rec)
	if err != nil {
		return err
	}

	id := rec.ID()
	if !validID(id) {
		return fmt.Errorf("invalid call_id %q", id)
	}

	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path(id))
}

func (s *fileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	ids := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}

	sort.Strings(ids)

	return ids, nil
}

func (s *fileStore) path(id string) string {
	return filepath.Join(s.dir, id+ext)
}

func validID(id string) bool {
	return len(id) > 0 &&
		!strings.HasPrefix(id, ".") &&
		!strings.ContainsAny(id, `/\`) &&
		filepath.Base(id) == id
}

// NewStore keeps one JSON document per call in the location directory,
// creating it when missing.
func NewStore(opts ...store.Option) store.Store {
	options := store.NewOptions(opts...)

	if len(options.Location) == 0 {
		panic("missing location for file store")
	}

	if err := os.MkdirAll(options.Location, 0o755); err != nil {
		detail := "failed to create file store directory"
		slog.ErrorContext(options.Context, detail, "dir", options.Location, "error", err)
		panic(detail)
	}

	return &fileStore{
		options: options,
		dir:     options.Location,
	}
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/store"
	"github.com/w-h-a/calls/transcriber"
)

type Summary struct {
	Discovered int `json:"discovered"`
	Ingested   int `json:"ingested"`
	Existing   int `json:"existing"`
	Failed     int `json:"failed"`
}

type Service struct {
	store       store.Store
	transcriber transcriber.Transcriber
	dir         string
	options     Options
}

// Ingest transcribes every recording that has no stored record yet. Stored
// records are never rewritten. A failed transcription is logged and skipped.
func (s *Service) Ingest(ctx context.Context) (Summary, error) {
	var summary Summary

	recordings, err := Discover(s.dir)
	if err != nil {
		return summary, err
	}

	summary.Discovered = len(recordings)

	for _, rec := range recordings {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		id := rec.CallID()

		_, err := s.store.Load(ctx, id)
		if err == nil {
			summary.Existing++
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			slog.ErrorContext(ctx, "failed to check existing record", "call_id", id, "error", err)
			summary.Failed++
			continue
		}

		slog.InfoContext(ctx, "transcribing recording", "path", rec.Path, "size", humanize.Bytes(uint64(rec.Size)))

		transcript, err := s.transcriber.Transcribe(ctx, rec.Path)
		if err != nil {
			slog.ErrorContext(ctx, "failed to transcribe recording", "path", rec.Path, "error", err)
			summary.Failed++
			continue
		}

		call := record.New(record.Metadata{
			CallID:          id,
			ClientID:        s.options.ClientID,
			AudioRef:        rec.Path,
			DurationSeconds: transcript.DurationSeconds,
			ExtraMetadata: map[string]any{
				"size_bytes":    rec.Size,
				"modified_time": float64(rec.ModTime.UnixNano()) / float64(time.Second),
				"created_at":    time.Now().UTC().Format(time.RFC3339Nano),
			},
		}, transcript.Text)

		if len(transcript.Language) > 0 {
			call.Metadata.ExtraMetadata["language"] = transcript.Language
		}

		if err := s.store.Save(ctx, call); err != nil {
			return summary, fmt.Errorf("save %s: %w", id, err)
		}

		slog.InfoContext(ctx, "recording ingested", "call_id", id, "transcript_chars", len(transcript.Text))

		summary.Ingested++
	}

	return summary, nil
}

// Watch ingests once, then again whenever audio files under the recordings
// directory settle after a change. It returns when ctx ends.
func (s *Service) Watch(ctx context.Context, onIngest func(Summary)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	slog.InfoContext(ctx, "watching for recordings", "dir", s.dir, "debounce", s.options.Debounce)

	run := func() {
		summary, err := s.Ingest(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.ErrorContext(ctx, "watch ingest failed", "error", err)
			}
			return
		}
		if onIngest != nil {
			onIngest(summary)
		}
	}

	run()

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := watcher.Add(event.Name); err != nil {
					slog.WarnContext(ctx, "failed to watch directory", "dir", event.Name, "error", err)
				}
			}
			if !isAudio(event.Name) || !(event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(s.options.Debounce)
			fire = debounce.C
		case <-fire:
			fire = nil
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "watch error", "error", err)
		}
	}
}

func New(s store.Store, t transcriber.Transcriber, recordingsDir string, opts ...Option) *Service {
	return &Service{
		store:       s,
		transcriber: t,
		dir:         recordingsDir,
		options:     NewOptions(opts...),
	}
}

package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var audioExts = map[string]bool{
	".wav": true,
	".mp3": true,
}

type Recording struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// CallID is the recording's file stem joined with its mtime in unix seconds,
// e.g. conversation_1732041234.
func (r Recording) CallID() string {
	stem := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))
	return fmt.Sprintf("%s_%d", stem, r.ModTime.Unix())
}

func isAudio(path string) bool {
	return audioExts[strings.ToLower(filepath.Ext(path))]
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Discover walks dir for audio recordings, oldest first.
func Discover(dir string) ([]Recording, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("recordings directory: %w", err)
	}

	var recordings []Recording

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isAudio(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		recordings = append(recordings, Recording{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(recordings, func(i, j int) bool {
		if !recordings[i].ModTime.Equal(recordings[j].ModTime) {
			return recordings[i].ModTime.Before(recordings[j].ModTime)
		}
		return recordings[i].Path < recordings[j].Path
	})

	return recordings, nil
}

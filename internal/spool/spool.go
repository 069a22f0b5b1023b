// Package spool ingests listens from a drop directory. Players (or
// scripts) write YAML listen files into the spool; the watcher parses
// them, hands the listens to the client and archives the file.
package spool

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jlieth/legacy-scrobbler-go/internal/listen"
)

// fileListen is the YAML shape of one listen in a spool file.
type fileListen struct {
	Date          time.Time `yaml:"date"`
	Artist        string    `yaml:"artist"`
	Title         string    `yaml:"title"`
	Album         string    `yaml:"album,omitempty"`
	Length        int       `yaml:"length,omitempty"`
	TrackNumber   int       `yaml:"track_number,omitempty"`
	MusicBrainzID string    `yaml:"musicbrainz_id,omitempty"`
	Source        string    `yaml:"source,omitempty"`
	Rating        string    `yaml:"rating,omitempty"`
}

func (f fileListen) toListen() listen.Listen {
	l := listen.New(f.Date, f.Artist, f.Title)
	l.Album = f.Album
	l.Length = f.Length
	l.TrackNumber = f.TrackNumber
	l.MusicBrainzID = f.MusicBrainzID
	if f.Source != "" {
		l.Source = f.Source
	}
	l.Rating = f.Rating
	return l
}

// ParseFile reads a spool file: a YAML list of listens. Every listen must
// validate; a file with one bad entry is rejected whole so it can be
// inspected instead of partially scrobbled.
func ParseFile(path string) ([]listen.Listen, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spool file: %w", err)
	}

	var entries []fileListen
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse spool file %s: %w", filepath.Base(path), err)
	}

	listens := make([]listen.Listen, 0, len(entries))
	for i, entry := range entries {
		l := entry.toListen()
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("spool file %s entry %d: %w", filepath.Base(path), i, err)
		}
		listens = append(listens, l)
	}
	return listens, nil
}

// IsSpoolFile reports whether the file name looks like a spool entry.
func IsSpoolFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Scan returns the spool files currently in dir, sorted by name. File
// names are expected to sort chronologically (timestamps or ULIDs).
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read spool dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSpoolFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Archive moves a processed spool file into the archive subdirectory.
func Archive(path string) error {
	dir := filepath.Join(filepath.Dir(path), "archive")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	target := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("archive spool file: %w", err)
	}
	return nil
}

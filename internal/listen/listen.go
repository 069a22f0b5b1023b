// Package listen defines the Listen type, a single played track in the
// form the Audioscrobbler 1.2 submission protocol expects.
package listen

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"
)

// SourceP marks a listen as chosen by the user ("P" in the protocol).
// Other source codes exist (R, E, L) but players almost always submit P.
const SourceP = "P"

// ErrZeroDate is returned when a listen carries no play date. The protocol
// submits unix timestamps, so a listen without a date cannot be scrobbled.
var ErrZeroDate = errors.New("listen date must be set")

// Listen is a single played track.
type Listen struct {
	// Date is when playback started. Required.
	Date time.Time

	// Artist is the artist name. Required.
	Artist string

	// Title is the track title. Required.
	Title string

	// Album is the album title, if known.
	Album string

	// Length is the track length in seconds, if known.
	Length int

	// TrackNumber is the position of the track on the album, if known.
	TrackNumber int

	// MusicBrainzID is the MusicBrainz track ID, if known.
	MusicBrainzID string

	// Source is the protocol source code. Defaults to "P" when empty.
	Source string

	// Rating is the protocol rating code (L, B, S), if any.
	Rating string
}

// New creates a Listen with the required fields and the default source.
func New(date time.Time, artist, title string) Listen {
	return Listen{
		Date:   date,
		Artist: artist,
		Title:  title,
		Source: SourceP,
	}
}

// Validate checks that the listen can be submitted.
func (l Listen) Validate() error {
	if l.Date.IsZero() {
		return ErrZeroDate
	}
	if l.Artist == "" {
		return errors.New("listen artist must not be empty")
	}
	if l.Title == "" {
		return errors.New("listen title must not be empty")
	}
	return nil
}

// Timestamp returns the play date as unix seconds.
func (l Listen) Timestamp() int64 {
	return l.Date.Unix()
}

// source returns the effective source code.
func (l Listen) source() string {
	if l.Source == "" {
		return SourceP
	}
	return l.Source
}

// NowPlayingParams returns the form values for a now-playing notification.
// Optional fields are sent as empty strings, as the protocol requires every
// key to be present.
func (l Listen) NowPlayingParams() url.Values {
	return url.Values{
		"a": {l.Artist},
		"t": {l.Title},
		"b": {l.Album},
		"l": {emptyOrInt(l.Length)},
		"n": {emptyOrInt(l.TrackNumber)},
		"m": {l.MusicBrainzID},
	}
}

// SubmitParams returns the form values for this listen at position idx of
// a submission batch.
func (l Listen) SubmitParams(idx int) url.Values {
	key := func(name string) string {
		return fmt.Sprintf("%s[%d]", name, idx)
	}
	return url.Values{
		key("a"): {l.Artist},
		key("t"): {l.Title},
		key("i"): {fmt.Sprintf("%d", l.Timestamp())},
		key("o"): {l.source()},
		key("r"): {l.Rating},
		key("l"): {emptyOrInt(l.Length)},
		key("b"): {l.Album},
		key("n"): {emptyOrInt(l.TrackNumber)},
		key("m"): {l.MusicBrainzID},
	}
}

// SortByDate sorts listens by play date, oldest first. The submission
// protocol requires batches in chronological order.
func SortByDate(listens []Listen) {
	sort.SliceStable(listens, func(i, j int) bool {
		return listens[i].Date.Before(listens[j].Date)
	})
}

func emptyOrInt(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

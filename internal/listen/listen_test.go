package listen

import (
	"testing"
	"time"
)

func sampleListen() Listen {
	l := New(time.Date(2019, 3, 4, 21, 13, 0, 0, time.UTC), "Heaven Shall Burn", "Voice of the Voiceless")
	l.Album = "Antigone"
	l.Length = 221
	l.TrackNumber = 4
	return l
}

func TestValidate(t *testing.T) {
	l := sampleListen()
	if err := l.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ZeroDate(t *testing.T) {
	l := sampleListen()
	l.Date = time.Time{}
	if err := l.Validate(); err != ErrZeroDate {
		t.Errorf("expected ErrZeroDate, got %v", err)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	l := sampleListen()
	l.Artist = ""
	if err := l.Validate(); err == nil {
		t.Error("expected error for empty artist")
	}

	l = sampleListen()
	l.Title = ""
	if err := l.Validate(); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestTimestamp(t *testing.T) {
	l := sampleListen()
	want := l.Date.Unix()
	if got := l.Timestamp(); got != want {
		t.Errorf("expected timestamp %d, got %d", want, got)
	}
}

func TestNowPlayingParams(t *testing.T) {
	params := sampleListen().NowPlayingParams()

	expected := map[string]string{
		"a": "Heaven Shall Burn",
		"t": "Voice of the Voiceless",
		"b": "Antigone",
		"l": "221",
		"n": "4",
		"m": "",
	}
	for key, want := range expected {
		if got := params.Get(key); got != want {
			t.Errorf("param %q: expected %q, got %q", key, want, got)
		}
	}
}

func TestNowPlayingParams_OptionalFieldsEmpty(t *testing.T) {
	l := New(time.Date(2019, 3, 4, 21, 13, 0, 0, time.UTC), "Artist", "Title")
	params := l.NowPlayingParams()

	for _, key := range []string{"b", "l", "n", "m"} {
		if _, ok := params[key]; !ok {
			t.Errorf("expected key %q to be present", key)
		}
		if got := params.Get(key); got != "" {
			t.Errorf("param %q: expected empty string, got %q", key, got)
		}
	}
}

func TestSubmitParams(t *testing.T) {
	l := sampleListen()
	params := l.SubmitParams(3)

	expected := map[string]string{
		"a[3]": "Heaven Shall Burn",
		"t[3]": "Voice of the Voiceless",
		"o[3]": "P",
		"r[3]": "",
		"l[3]": "221",
		"b[3]": "Antigone",
		"n[3]": "4",
		"m[3]": "",
	}
	for key, want := range expected {
		if got := params.Get(key); got != want {
			t.Errorf("param %q: expected %q, got %q", key, want, got)
		}
	}
	if params.Get("i[3]") == "" {
		t.Error("expected timestamp param i[3] to be set")
	}
}

func TestSubmitParams_DefaultSource(t *testing.T) {
	l := sampleListen()
	l.Source = ""
	if got := l.SubmitParams(0).Get("o[0]"); got != "P" {
		t.Errorf("expected default source P, got %q", got)
	}
}

func TestSortByDate(t *testing.T) {
	base := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	listens := []Listen{
		New(base.Add(2*time.Hour), "a", "t"),
		New(base, "b", "t"),
		New(base.Add(time.Hour), "c", "t"),
	}

	SortByDate(listens)

	if listens[0].Artist != "b" || listens[1].Artist != "c" || listens[2].Artist != "a" {
		t.Errorf("expected chronological order b, c, a, got %s, %s, %s",
			listens[0].Artist, listens[1].Artist, listens[2].Artist)
	}
}

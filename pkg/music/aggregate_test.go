package music

import (
	"testing"
)

// TestMergeFirstOccurrenceWins ensures that a track returned by three
// different upstream calls appears once, at the position of its first
// occurrence.
func TestMergeFirstOccurrenceWins(t *testing.T) {
	a := []Track{newTrack("x"), newTrack("1")}
	b := []Track{newTrack("2"), newTrack("x")}
	c := []Track{newTrack("x"), newTrack("3")}

	res := Merge(a, b, c)
	got := TrackIDs(res)
	want := []string{"x", "1", "2", "3"}
	if len(got) != len(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v got %v", want, got)
		}
	}
}

func TestDedupeSingleList(t *testing.T) {
	res := Dedupe([]Track{newTrack("a"), newTrack("b"), newTrack("a")})
	if len(res) != 2 || res[0].ID != "a" || res[1].ID != "b" {
		t.Fatalf("unexpected result %+v", res)
	}
}

// TestExclude verifies that disliked IDs are filtered without reordering and
// that the input slice is left untouched.
func TestExclude(t *testing.T) {
	in := []Track{newTrack("a"), newTrack("b"), newTrack("c")}
	res := Exclude(in, []string{"b"})
	if len(res) != 2 || res[0].ID != "a" || res[1].ID != "c" {
		t.Fatalf("unexpected result %+v", res)
	}
	if in[1].ID != "b" {
		t.Fatalf("input was modified: %+v", in)
	}
}

func TestTruncate(t *testing.T) {
	in := []Track{newTrack("a"), newTrack("b"), newTrack("c")}
	if got := Truncate(in, 2); len(got) != 2 {
		t.Fatalf("expected 2 got %d", len(got))
	}
	if got := Truncate(in, 20); len(got) != 3 {
		t.Fatalf("expected 3 got %d", len(got))
	}
}

func newTrack(id string) Track {
	return Track{ID: id, Name: "Song " + id}
}

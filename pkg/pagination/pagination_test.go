package pagination

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{-3: DefaultLimit, 0: DefaultLimit, 7: 7, MaxLimit: MaxLimit, MaxLimit + 1: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if got := LimitWithBuffer(0); got != DefaultLimit+1 {
		t.Fatalf("LimitWithBuffer(0) = %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 4, 2, 10, 30, 0, 123456789, time.FixedZone("x", 3600))
	id := uuid.New()

	token := EncodeCursor(Cursor{At: at, ID: id})
	cursor, err := ParseCursor(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cursor.At.Equal(at) || cursor.At.Location() != time.UTC {
		t.Fatalf("unexpected timestamp %v", cursor.At)
	}
	if cursor.ID != id {
		t.Fatalf("unexpected id %s", cursor.ID)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("blank cursor should be nil, got %v %v", c, err)
	}
	for _, token := range []string{"%%%", "bm8tc2VwYXJhdG9y", EncodeCursor(Cursor{})[:4]} {
		if _, err := ParseCursor(token); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("token %q: expected ErrInvalidCursor, got %v", token, err)
		}
	}
}

func TestTrim(t *testing.T) {
	base := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	rows := []Cursor{
		{At: base.Add(3 * time.Minute), ID: uuid.New()},
		{At: base.Add(2 * time.Minute), ID: uuid.New()},
		{At: base.Add(time.Minute), ID: uuid.New()},
	}
	key := func(c Cursor) Cursor { return c }

	page, next := Trim(rows, 2, key)
	if len(page) != 2 || next == "" {
		t.Fatalf("expected a full page with a next cursor, got %d %q", len(page), next)
	}
	cursor, err := ParseCursor(next)
	if err != nil {
		t.Fatalf("parse next: %v", err)
	}
	if cursor.ID != rows[1].ID {
		t.Fatalf("next cursor should point at the last returned row")
	}

	page, next = Trim(rows, 5, key)
	if len(page) != 3 || next != "" {
		t.Fatalf("expected the last page, got %d %q", len(page), next)
	}
}

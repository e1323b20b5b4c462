package id

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSortable_Version(t *testing.T) {
	u, err := uuid.Parse(Sortable())
	if err != nil {
		t.Fatalf("Sortable() not parseable: %v", err)
	}
	if u.Version() != 7 {
		t.Errorf("Sortable() version = %d, want 7", u.Version())
	}
}

func TestSortable_Ordered(t *testing.T) {
	ids := make([]string, 0, 5)
	for range 5 {
		ids = append(ids, Sortable())
		time.Sleep(2 * time.Millisecond)
	}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("Sortable() ids not in creation order: %v", ids)
	}
}

func TestShort(t *testing.T) {
	id := Short()
	if len(id) != 16 {
		t.Errorf("Short() length = %d, want 16", len(id))
	}
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(id) {
		t.Errorf("Short() = %q, want lowercase hex", id)
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("ws")
	if !strings.HasPrefix(id, "ws-") || len(id) != 19 {
		t.Errorf("Prefixed(ws) = %q", id)
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"empty", "", false},
		{"client id", "abc-123", true},
		{"trimmed", "  abc  ", true},
		{"control chars", "abc\ndef", false},
		{"too long", strings.Repeat("a", 129), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequestID(tt.incoming)
			if tt.keep && got != strings.TrimSpace(tt.incoming) {
				t.Errorf("RequestID(%q) = %q, want incoming kept", tt.incoming, got)
			}
			if !tt.keep {
				if _, err := uuid.Parse(got); err != nil {
					t.Errorf("RequestID(%q) = %q, want generated UUID", tt.incoming, got)
				}
			}
		})
	}
}

func TestUniqueness_Concurrent(t *testing.T) {
	const n = 1000
	var (
		mu   sync.Mutex
		seen = make(map[string]bool, n)
		wg   sync.WaitGroup
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := Sortable()
			mu.Lock()
			defer mu.Unlock()
			if seen[id] {
				t.Errorf("duplicate id %s", id)
			}
			seen[id] = true
		}()
	}
	wg.Wait()
}

package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/ports"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "calendo", "todos.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := newStore(t)

	snap, ok, err := store.Load()
	if err != nil || ok || snap != nil {
		t.Errorf("Load() = %v, %v, %v; want nil, false, nil", snap, ok, err)
	}
}

func TestFileStore_SaveLoadKeepsBucketOrder(t *testing.T) {
	store := newStore(t)
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	snap := ports.Snapshot{
		"2024-03-05": {
			{ID: "z-low", Text: "Stretch", Priority: entities.PriorityLow, Category: "General", Date: day},
			{ID: "a-high", Text: "Pay rent", Priority: entities.PriorityHigh, Category: "personal", Date: day, IsDone: true},
		},
	}
	if err := store.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Index(string(data), "z-low") > strings.Index(string(data), "a-high") {
		t.Errorf("bucket order not preserved in file:\n%s", data)
	}

	loaded, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("Load() ok=%v err=%v", ok, err)
	}
	bucket := loaded["2024-03-05"]
	if len(bucket) != 2 {
		t.Fatalf("len(bucket) = %d, want 2", len(bucket))
	}
	if bucket[0].ID != "z-low" || bucket[1].ID != "a-high" {
		t.Errorf("order = %s, %s", bucket[0].ID, bucket[1].ID)
	}
	if !bucket[1].IsDone || !bucket[1].Date.Equal(day) {
		t.Errorf("round trip lost fields: %+v", bucket[1])
	}
}

func TestFileStore_LoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{"2024-03-05": `},
		{"bad date key", `{"March 5": {}}`},
		{"todo without text", `{"2024-03-05": {"a1": {"priority": "Low", "date": "2024-03-05T00:00:00Z"}}}`},
		{"bucket is array", `{"2024-03-05": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			if err := os.MkdirAll(filepath.Dir(store.Path()), 0o700); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(store.Path(), []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}

			_, ok, err := store.Load()
			if ok {
				t.Error("invalid snapshot reported as usable")
			}
			if err == nil {
				t.Error("expected an explanation for the rejected snapshot")
			}
		})
	}
}

func TestFileStore_LoadFillsMissingID(t *testing.T) {
	store := newStore(t)
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0o700); err != nil {
		t.Fatal(err)
	}
	content := `{"2024-03-05": {"a1": {"text": "Pay rent", "priority": "High", "date": "2024-03-05T00:00:00Z"}}}`
	if err := os.WriteFile(store.Path(), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	snap, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("Load() ok=%v err=%v", ok, err)
	}
	if got := snap["2024-03-05"][0].ID; got != "a1" {
		t.Errorf("id = %q, want a1", got)
	}
}

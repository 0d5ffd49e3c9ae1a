package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/ports"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "snapshot.schema.json"

// FileStore keeps the client snapshot in a single JSON file: an object of
// calendar day to an object of id to todo.
type FileStore struct {
	path   string
	schema *jsonschema.Schema
}

var _ ports.SnapshotStore = (*FileStore)(nil)

// NewFileStore creates a store backed by path. The file need not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load snapshot schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile snapshot schema: %w", err)
	}

	return &FileStore{path: path, schema: schema}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Load reads and validates the snapshot. A missing file is not an error.
func (s *FileStore) Load() (ports.Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("snapshot is not valid JSON: %w", err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, false, fmt.Errorf("snapshot does not match schema: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	snap := make(ports.Snapshot, len(raw))
	for date, bucket := range raw {
		todos, err := decodeBucket(bucket)
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode bucket %s: %w", date, err)
		}
		snap[date] = todos
	}

	return snap, true, nil
}

// decodeBucket decodes an object of id to todo keeping the file order.
func decodeBucket(data []byte) ([]*entities.Todo, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var todos []*entities.Todo
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, _ := tok.(string)

		var todo entities.Todo
		if err := dec.Decode(&todo); err != nil {
			return nil, err
		}
		if todo.ID == "" {
			todo.ID = id
		}
		todos = append(todos, &todo)
	}

	return todos, nil
}

// Save writes the snapshot atomically. Days are written in ascending order,
// todos within a day in the order given.
func (s *FileStore) Save(snap ports.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func encode(snap ports.Snapshot) ([]byte, error) {
	dates := make([]string, 0, len(snap))
	for date := range snap {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, date := range dates {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(date)
		buf.Write(key)
		buf.WriteString(":{")
		for j, todo := range snap[date] {
			if j > 0 {
				buf.WriteByte(',')
			}
			id, _ := json.Marshal(todo.ID)
			body, err := json.Marshal(todo)
			if err != nil {
				return nil, err
			}
			buf.Write(id)
			buf.WriteByte(':')
			buf.Write(body)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

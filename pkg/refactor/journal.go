package refactor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mamaar/constprop/pkg/types"
)

// HistoryDir is where committed transactions are journaled, relative to
// the workspace root
const HistoryDir = ".constprop/history"

// JournalEntry records one committed transaction so it can be undone
type JournalEntry struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	Field     string     `yaml:"field,omitempty"`
	Container string     `yaml:"container,omitempty"`
	Time      time.Time  `yaml:"time"`
	Files     []FileEdit `yaml:"files"`
}

// Journal stores transactions as YAML files, one per transaction
type Journal struct {
	dir string
	now func() time.Time
}

func NewJournal(root string) *Journal {
	return &Journal{dir: filepath.Join(root, filepath.FromSlash(HistoryDir)), now: time.Now}
}

// Dir returns the history directory
func (j *Journal) Dir() string {
	return j.dir
}

// Record writes a new entry and returns it
func (j *Journal) Record(name, field, container string, edits []FileEdit) (*JournalEntry, error) {
	entry := &JournalEntry{
		ID:        uuid.NewString(),
		Name:      name,
		Field:     field,
		Container: container,
		Time:      j.now().UTC(),
		Files:     edits,
	}
	data, err := yaml.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encoding journal entry: %w", err)
	}
	if err := os.MkdirAll(j.dir, 0755); err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to create history directory: %v", err),
			File:    j.dir,
			Cause:   err,
		}
	}
	if err := os.WriteFile(j.path(entry), data, 0644); err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to write journal entry: %v", err),
			File:    j.path(entry),
			Cause:   err,
		}
	}
	return entry, nil
}

// List returns all entries, oldest first
func (j *Journal) List() ([]*JournalEntry, error) {
	names, err := os.ReadDir(j.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var entries []*JournalEntry
	for _, de := range names {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(j.dir, de.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", de.Name(), err)
		}
		var entry JournalEntry
		if err := yaml.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", de.Name(), err)
		}
		entries = append(entries, &entry)
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Time.Before(entries[b].Time)
	})
	return entries, nil
}

// Last returns the newest entry, nil when the history is empty
func (j *Journal) Last() (*JournalEntry, error) {
	entries, err := j.List()
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[len(entries)-1], nil
}

// Remove deletes an entry after it has been undone
func (j *Journal) Remove(entry *JournalEntry) error {
	err := os.Remove(j.path(entry))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing journal entry %s: %w", entry.ID, err)
	}
	return nil
}

func (j *Journal) path(entry *JournalEntry) string {
	return filepath.Join(j.dir, entry.Time.Format("20060102T150405.000000000")+"-"+entry.ID+".yml")
}

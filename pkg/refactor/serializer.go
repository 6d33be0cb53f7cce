package refactor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/mamaar/constprop/pkg/types"
)

// FileEdit is the before and after of one file touched by a transaction
type FileEdit struct {
	Path    string `yaml:"path"`
	Before  string `yaml:"before"`
	After   string `yaml:"after"`
	Created bool   `yaml:"created,omitempty"`
}

// Serializer applies refactoring changes to files. A batch is verified in
// memory before anything is written, and files already written are
// restored when a later write fails.
type Serializer struct {
	logger *zap.Logger
	write  func(path string, data []byte) error
}

func NewSerializer(logger *zap.Logger) *Serializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Serializer{logger: logger, write: writeFile}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Stage computes the new content of every file without writing. It fails
// when a file changed on disk since the plan was made.
func (s *Serializer) Stage(changes []types.Change) ([]FileEdit, error) {
	fileChanges := make(map[string][]types.Change)
	for _, change := range changes {
		fileChanges[change.File] = append(fileChanges[change.File], change)
	}

	files := make([]string, 0, len(fileChanges))
	for file := range fileChanges {
		files = append(files, file)
	}
	sort.Strings(files)

	edits := make([]FileEdit, 0, len(files))
	for _, path := range files {
		edit, err := s.stageFile(path, fileChanges[path])
		if err != nil {
			return nil, err
		}
		edits = append(edits, edit)
	}
	return edits, nil
}

func (s *Serializer) stageFile(path string, changes []types.Change) (FileEdit, error) {
	edit := FileEdit{Path: path}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		for _, ch := range changes {
			if ch.Create {
				return edit, &types.RefactorError{
					Type:    types.StaleElement,
					Message: "file to create already exists",
					File:    path,
				}
			}
		}
	case os.IsNotExist(err):
		for _, ch := range changes {
			if !ch.Create {
				return edit, &types.RefactorError{
					Type:    types.StaleElement,
					Message: "file no longer exists",
					File:    path,
					Cause:   err,
				}
			}
		}
		edit.Created = true
	default:
		return edit, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to read file: %v", err),
			File:    path,
			Cause:   err,
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Start > changes[j].Start
	})
	if err := s.validateChangePositions(changes); err != nil {
		return edit, &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: fmt.Sprintf("invalid change positions: %v", err),
			File:    path,
		}
	}

	modified := string(content)
	for _, change := range changes {
		modified, err = s.applyChange(modified, change)
		if err != nil {
			return edit, &types.RefactorError{
				Type:    types.StaleElement,
				Message: err.Error(),
				File:    path,
				Cause:   err,
			}
		}
	}
	edit.Before = string(content)
	edit.After = modified
	return edit, nil
}

// Commit writes staged edits. On the first failure every file already
// written is put back and created files are removed.
func (s *Serializer) Commit(edits []FileEdit) error {
	for i, edit := range edits {
		if err := s.write(edit.Path, []byte(edit.After)); err != nil {
			s.logger.Error("write failed, rolling back", zap.String("file", edit.Path), zap.Error(err))
			s.rollback(edits[:i])
			return &types.RefactorError{
				Type:    types.FileSystemError,
				Message: fmt.Sprintf("failed to write %s: %v", edit.Path, err),
				File:    edit.Path,
				Cause:   err,
			}
		}
	}
	return nil
}

// Revert restores the Before content of edits, newest first
func (s *Serializer) Revert(edits []FileEdit) error {
	var failed []string
	for i := len(edits) - 1; i >= 0; i-- {
		if err := s.restore(edits[i]); err != nil {
			failed = append(failed, edits[i].Path)
		}
	}
	if len(failed) > 0 {
		return &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to restore %s", strings.Join(failed, ", ")),
		}
	}
	return nil
}

func (s *Serializer) rollback(written []FileEdit) {
	for i := len(written) - 1; i >= 0; i-- {
		if err := s.restore(written[i]); err != nil {
			s.logger.Error("rollback failed", zap.String("file", written[i].Path), zap.Error(err))
		}
	}
}

func (s *Serializer) restore(edit FileEdit) error {
	if edit.Created {
		err := os.Remove(edit.Path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return s.write(edit.Path, []byte(edit.Before))
}

// ApplyChanges stages and commits in one step
func (s *Serializer) ApplyChanges(changes []types.Change) ([]FileEdit, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	edits, err := s.Stage(changes)
	if err != nil {
		return nil, err
	}
	if err := s.Commit(edits); err != nil {
		return nil, err
	}
	return edits, nil
}

// applyChange applies a single change to the content
func (s *Serializer) applyChange(content string, change types.Change) (string, error) {
	if change.Start < 0 || change.End > len(content) || change.Start > change.End {
		return "", fmt.Errorf("invalid change bounds: start=%d, end=%d, content length=%d",
			change.Start, change.End, len(content))
	}

	if change.OldText != "" {
		actual := content[change.Start:change.End]
		if actual != change.OldText {
			return "", fmt.Errorf("old text mismatch: expected '%s', found '%s'", change.OldText, actual)
		}
	}

	return content[:change.Start] + change.NewText + content[change.End:], nil
}

// validateChangePositions ensures changes don't overlap
func (s *Serializer) validateChangePositions(changes []types.Change) error {
	for i := 0; i < len(changes); i++ {
		for j := i + 1; j < len(changes); j++ {
			if s.changesOverlap(changes[i], changes[j]) {
				return fmt.Errorf("overlapping changes detected: [%d-%d] and [%d-%d]",
					changes[i].Start, changes[i].End, changes[j].Start, changes[j].End)
			}
		}
	}
	return nil
}

func (s *Serializer) changesOverlap(change1, change2 types.Change) bool {
	return change1.Start < change2.End && change2.Start < change1.End
}

// PreviewChanges lists the changes grouped by file
func (s *Serializer) PreviewChanges(changes []types.Change) string {
	if len(changes) == 0 {
		return "No changes to preview"
	}

	fileChanges := make(map[string][]types.Change)
	for _, change := range changes {
		fileChanges[change.File] = append(fileChanges[change.File], change)
	}
	var files []string
	for file := range fileChanges {
		files = append(files, file)
	}
	sort.Strings(files)

	var preview strings.Builder
	fmt.Fprintf(&preview, "Preview of %d changes across %d files:\n\n", len(changes), len(files))
	for _, file := range files {
		changesForFile := fileChanges[file]
		fmt.Fprintf(&preview, "File: %s\n", file)
		preview.WriteString(strings.Repeat("-", len(file)+6) + "\n")

		sort.Slice(changesForFile, func(i, j int) bool {
			return changesForFile[i].Start < changesForFile[j].Start
		})
		for i, change := range changesForFile {
			fmt.Fprintf(&preview, "%d. %s\n", i+1, change.Description)
			if change.OldText != "" {
				fmt.Fprintf(&preview, "   - %s\n", truncateText(change.OldText))
			}
			if change.NewText != "" {
				fmt.Fprintf(&preview, "   + %s\n", truncateText(change.NewText))
			}
		}
		preview.WriteString("\n")
	}
	return preview.String()
}

// Diff renders staged edits as one unified diff
func (s *Serializer) Diff(edits []FileEdit, root string) (string, error) {
	var out strings.Builder
	for _, edit := range edits {
		name := edit.Path
		if rel, err := filepath.Rel(root, edit.Path); err == nil && root != "" {
			name = filepath.ToSlash(rel)
		}
		from := "a/" + name
		if edit.Created {
			from = "/dev/null"
		}
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(edit.Before),
			B:        difflib.SplitLines(edit.After),
			FromFile: from,
			ToFile:   "b/" + name,
			Context:  3,
		})
		if err != nil {
			return "", fmt.Errorf("diffing %s: %w", edit.Path, err)
		}
		out.WriteString(text)
	}
	return out.String(), nil
}

// truncateText collapses whitespace and shortens text for one-line display
func truncateText(text string) string {
	const length = 80
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= length {
		return text
	}
	return text[:length-3] + "..."
}

package provision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RecordName is the file in the tool directory listing where each
// downloaded executable was extracted.
const RecordName = ".wavnorm-tools.json"

// installRecord maps a tool name to its path relative to the tool directory.
type installRecord struct {
	Version string            `json:"version"`
	Tools   map[string]string `json:"tools"`
}

func readRecord(dir string) (installRecord, bool) {
	var rec installRecord
	b, err := os.ReadFile(filepath.Join(dir, RecordName))
	if err != nil {
		return rec, false
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, false
	}
	return rec, true
}

func writeRecord(dir string, rec installRecord) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, RecordName), append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", RecordName, err)
	}
	return nil
}

// recordedPath returns the recorded location of tool under dir, rejecting
// entries that point outside it.
func (r installRecord) recordedPath(dir, tool string) (string, bool) {
	rel, ok := r.Tools[tool]
	if !ok || rel == "" || filepath.IsAbs(rel) {
		return "", false
	}
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if !isWithinBaseDir(dir, path) {
		return "", false
	}
	return path, true
}

func isRegularFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

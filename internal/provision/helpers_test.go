package provision

import (
	"archive/zip"
	"bytes"
	"os"
	"testing"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})        {}
func (nopLogger) Success(string, ...interface{})     {}
func (nopLogger) Warn(string, ...interface{})        {}
func (nopLogger) Debug(bool, string, ...interface{}) {}

type zipEntry struct {
	name string
	body string
}

// zipBytes builds an in-memory ZIP archive with entries in the given order.
// Names ending in "/" become directory entries.
func zipBytes(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", e.name, err)
		}
		if e.body != "" {
			if _, err := w.Write([]byte(e.body)); err != nil {
				t.Fatalf("write zip entry %s: %v", e.name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func writeZip(t *testing.T, path string, entries ...zipEntry) {
	t.Helper()
	if err := os.WriteFile(path, zipBytes(t, entries...), 0o644); err != nil {
		t.Fatalf("write zip %s: %v", path, err)
	}
}

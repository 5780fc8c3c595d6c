package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type testDocument struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	fileStore, err := NewFileStore(dir, quietLogger())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return fileStore, dir
}

func TestFileStoreRoundtrip(t *testing.T) {
	fileStore, dir := newTestFileStore(t)
	ctx := context.Background()

	saved := map[string]testDocument{
		"acme": {Name: "Acme Industries", Count: 3, Tags: []string{"open"}},
		"beta": {Name: "Beta Pharma", Count: 1},
	}
	if err := fileStore.Save(ctx, KindIPOs, saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := map[string]testDocument{}
	if err := fileStore.Load(ctx, KindIPOs, &loaded); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 || loaded["acme"].Count != 3 || loaded["beta"].Name != "Beta Pharma" {
		t.Errorf("loaded document = %+v", loaded)
	}

	// One file per kind, no temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "ipos.json")); err != nil {
		t.Errorf("ipos.json missing: %v", err)
	}
}

func TestFileStoreSaveReplacesDocument(t *testing.T) {
	fileStore, _ := newTestFileStore(t)
	ctx := context.Background()

	if err := fileStore.Save(ctx, KindFundamentals, map[string]testDocument{"old": {Name: "Old"}}); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := fileStore.Save(ctx, KindFundamentals, map[string]testDocument{"new": {Name: "New"}}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded := map[string]testDocument{}
	if err := fileStore.Load(ctx, KindFundamentals, &loaded); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, stale := loaded["old"]; stale {
		t.Error("replaced document still holds the old entry")
	}
	if loaded["new"].Name != "New" {
		t.Errorf("loaded document = %+v", loaded)
	}
}

func TestFileStoreLoadMissingDocument(t *testing.T) {
	fileStore, _ := newTestFileStore(t)

	loaded := map[string]testDocument{"seed": {Name: "untouched"}}
	if err := fileStore.Load(context.Background(), KindFetchRuns, &loaded); err != nil {
		t.Fatalf("missing document surfaced as an error: %v", err)
	}
	if loaded["seed"].Name != "untouched" {
		t.Error("missing document mutated the target value")
	}
}

func TestFileStoreLoadCorruptDocument(t *testing.T) {
	fileStore, dir := newTestFileStore(t)

	corruptPath := filepath.Join(dir, "ipos.json")
	if err := os.WriteFile(corruptPath, []byte(`{"truncated": `), 0o644); err != nil {
		t.Fatalf("failed to plant corrupt file: %v", err)
	}

	loaded := map[string]testDocument{}
	if err := fileStore.Load(context.Background(), KindIPOs, &loaded); err != nil {
		t.Fatalf("corrupt document surfaced as an error: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("corrupt document produced entries: %+v", loaded)
	}
}

func TestFileStoreLoadMismatchedShape(t *testing.T) {
	fileStore, dir := newTestFileStore(t)

	// Valid JSON that cannot decode into the target shape.
	if err := os.WriteFile(filepath.Join(dir, "ipos.json"), []byte(`[1, 2, 3]`), 0o644); err != nil {
		t.Fatalf("failed to plant mismatched file: %v", err)
	}

	loaded := map[string]testDocument{}
	if err := fileStore.Load(context.Background(), KindIPOs, &loaded); err != nil {
		t.Fatalf("mismatched document surfaced as an error: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("mismatched document produced entries: %+v", loaded)
	}
}

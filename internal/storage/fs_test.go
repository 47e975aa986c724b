package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/studycards/internal/apperr"
	"github.com/starford/studycards/internal/checksum"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestPutAndGet(t *testing.T) {
	s := tempStore(t)
	content := []byte(`{"Math":[]}`)
	if err := s.Put(KeyCardSets, content); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(KeyCardSets)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), KeyCardSets+".json")); err != nil {
		t.Errorf("document file missing: %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := tempStore(t)
	_, err := s.Get("nothing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	s := tempStore(t)
	_ = s.Put("k", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Put("k", updated); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ := s.Get("k")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".studycards-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestInvalidKeysRejected(t *testing.T) {
	s := tempStore(t)

	cases := []string{
		"",
		"../outside",
		"a/b",
		`a\b`,
		".hidden",
	}
	for _, k := range cases {
		if _, err := s.Get(k); err == nil {
			t.Errorf("expected error for get %q", k)
		}
		if err := s.Put(k, []byte("x")); err == nil {
			t.Errorf("expected error for put %q", k)
		}
	}
}

func TestLastChecksum(t *testing.T) {
	s := tempStore(t)
	if s.LastChecksum(KeyStarred) != "" {
		t.Fatal("expected empty checksum before any write")
	}
	data := []byte(`{"Math:0":true}`)
	_ = s.Put(KeyStarred, data)
	if got := s.LastChecksum(KeyStarred); got != checksum.Sum(data) {
		t.Errorf("LastChecksum = %q, want %q", got, checksum.Sum(data))
	}
}

func TestKeyForPath(t *testing.T) {
	s := tempStore(t)

	key, ok := s.KeyForPath(filepath.Join(s.Dir(), "studyCardSets.json"))
	if !ok || key != KeyCardSets {
		t.Errorf("KeyForPath = %q, %v", key, ok)
	}
	if _, ok := s.KeyForPath(filepath.Join(s.Dir(), ".studycards-tmp-123")); ok {
		t.Error("temp file should not map to a key")
	}
	if _, ok := s.KeyForPath(filepath.Join(s.Dir(), "sub", "x.json")); ok {
		t.Error("nested file should not map to a key")
	}
	if _, ok := s.KeyForPath(filepath.Join(s.Dir(), "notes.txt")); ok {
		t.Error("non-json file should not map to a key")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "studycards-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestOpen_Drivers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	p, err := Open(DriverFile, dir)
	if err != nil {
		t.Fatalf("Open(file): %v", err)
	}
	if _, ok := p.(*FS); !ok {
		t.Errorf("Open(file) = %T, want *FS", p)
	}
	_ = p.Close()

	p, err = Open(DriverSQLite, filepath.Join(t.TempDir(), "db", "cards.db"))
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	if _, ok := p.(*SQLite); !ok {
		t.Errorf("Open(sqlite) = %T, want *SQLite", p)
	}
	_ = p.Close()

	if _, err := Open("redis", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

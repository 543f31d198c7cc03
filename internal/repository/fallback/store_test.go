package fallback

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func TestStore_SaveLoad(t *testing.T) {
	s := New(t.TempDir(), zap.NewNop())

	if !s.Save("search:aapl", map[string]any{"ticker": "AAPL", "percentage": 6.5}) {
		t.Fatal("Save() = false")
	}

	got, ok := s.Load("search:aapl")
	if !ok {
		t.Fatal("Load() miss after Save()")
	}
	want := map[string]any{"ticker": "AAPL", "percentage": 6.5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %v, want %v", got, want)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := New(t.TempDir(), zap.NewNop())
	if v, ok := s.Load("stock:NOPE"); ok || v != nil {
		t.Errorf("Load() = %v, %v for missing key", v, ok)
	}
}

func TestStore_LoadMissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"), zap.NewNop())
	if _, ok := s.Load("funds"); ok {
		t.Error("Load() hit in a missing directory")
	}
}

func TestStore_LoadMalformed(t *testing.T) {
	s := New(t.TempDir(), zap.NewNop())
	if err := os.WriteFile(s.Path("stats"), []byte(`{"total_funds":`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Load("stats"); ok {
		t.Error("Load() returned a malformed snapshot")
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := New(t.TempDir(), zap.NewNop())
	s.Save("funds", []string{"VOO"})
	s.Save("funds", []string{"VOO", "VTI"})

	got, _ := s.Load("funds")
	if !reflect.DeepEqual(got, []any{"VOO", "VTI"}) {
		t.Errorf("Load() = %v", got)
	}
}

func TestStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	// dir path points below a regular file, so MkdirAll fails.
	s := New(filepath.Join(blocker, "sub"), zap.NewNop())
	if s.Save("funds", []string{"VOO"}) {
		t.Error("Save() = true for an unwritable directory")
	}
}

func TestStore_SaveUnencodable(t *testing.T) {
	s := New(t.TempDir(), zap.NewNop())
	if s.Save("bad", make(chan int)) {
		t.Error("Save() = true for an unencodable value")
	}
	if _, err := os.Stat(s.Path("bad")); !os.IsNotExist(err) {
		t.Error("unencodable value left a file behind")
	}
}

func TestStore_KeysAndEscaping(t *testing.T) {
	s := New(t.TempDir(), zap.NewNop())
	for _, k := range []string{"top:VOO:10", "search:brk/b", "funds"} {
		if !s.Save(k, 1) {
			t.Fatalf("Save(%q) = false", k)
		}
	}

	if filepath.Dir(s.Path("search:brk/b")) != s.Dir() {
		t.Errorf("key with a slash escaped the snapshot dir: %s", s.Path("search:brk/b"))
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys(): %v", err)
	}
	want := []string{"funds", "search:brk/b", "top:VOO:10"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}
}

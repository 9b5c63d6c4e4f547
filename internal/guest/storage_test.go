package guest

import (
	"errors"
	"testing"
)

func testStorage(t *testing.T, s Storage) {
	t.Helper()

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.Set("k1", []byte("v1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set("k2", []byte("v2")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get("k1")
	if err != nil || string(got) != "v1" {
		t.Errorf("Get(k1) = %q, %v, want v1", got, err)
	}

	if err := s.Clear("k1", "k2", "never-set"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	for _, k := range []string{"k1", "k2"} {
		if _, err := s.Get(k); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%s) after Clear error = %v, want ErrNotFound", k, err)
		}
	}
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()
	testStorage(t, NewMemoryStorage())
}

func TestMemoryStorageCopiesValues(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	buf := []byte("abc")
	if err := s.Set("k", buf); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	buf[0] = 'x'
	got, _ := s.Get("k")
	if string(got) != "abc" {
		t.Errorf("Get() = %q, want abc", got)
	}
}

func TestBadgerStorage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := OpenBadgerStorage(dir)
	if err != nil {
		t.Fatalf("OpenBadgerStorage() error = %v", err)
	}
	testStorage(t, s)

	if err := s.Set("persist", []byte("yes")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenBadgerStorage(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() {
		if err := reopened.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()
	got, err := reopened.Get("persist")
	if err != nil || string(got) != "yes" {
		t.Errorf("Get(persist) after reopen = %q, %v, want yes", got, err)
	}
}

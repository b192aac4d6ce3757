package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValueStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.json")

	store := NewValueStore(path)
	if _, ok := store.LastValue("number.CP01.1.maximum_current"); ok {
		t.Fatal("fresh store must be empty")
	}

	store.RecordValue("number.CP01.1.maximum_current", 16)
	store.RecordValue("number.CP01.2.maximum_power", 11000)

	// A new store reading the same file sees the persisted values.
	reopened := NewValueStore(path)
	v, ok := reopened.LastValue("number.CP01.1.maximum_current")
	if !ok || v != 16 {
		t.Fatalf("expected 16, got %v (present %v)", v, ok)
	}
	v, ok = reopened.LastValue("number.CP01.2.maximum_power")
	if !ok || v != 11000 {
		t.Fatalf("expected 11000, got %v (present %v)", v, ok)
	}
}

func TestValueStoreWithoutBackingFile(t *testing.T) {
	store := NewValueStore("")
	store.RecordValue("number.CP01.1.maximum_current", 16)

	v, ok := store.LastValue("number.CP01.1.maximum_current")
	if !ok || v != 16 {
		t.Fatalf("expected in-memory value 16, got %v (present %v)", v, ok)
	}
}

func TestValueStoreIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.json")
	store := NewValueStore(path)
	store.RecordValue("number.CP01.1.maximum_current", 16)

	// Overwrite with garbage; a reopened store starts empty instead of failing.
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("couldn't corrupt file: %v", err)
	}
	reopened := NewValueStore(path)
	if _, ok := reopened.LastValue("number.CP01.1.maximum_current"); ok {
		t.Fatal("corrupt store must restore nothing")
	}
}

package cache

import "testing"

func TestStoreAndLookup(t *testing.T) {
	c, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer c.Close()

	key := Key{CRC: 0xBEEF, TotalSize: 128}
	if _, ok, err := c.Lookup(key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Store(key, "x = 1\n"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, ok, err := c.Lookup(key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got != "x = 1\n" {
		t.Fatalf("got %q", got)
	}
}

func TestStoreOverwritesSameKey(t *testing.T) {
	c, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer c.Close()

	key := Key{CRC: 1, TotalSize: 1}
	if err := c.Store(key, "first\n"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Store(key, "second\n"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, ok, err := c.Lookup(key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got != "second\n" {
		t.Fatalf("got %q, want second\\n", got)
	}
}

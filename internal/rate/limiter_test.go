package rate

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	m := NewMemory()

	for i := 0; i < 3; i++ {
		ok, _ := m.Allow("k", 3, time.Minute)
		if !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, retry := m.Allow("k", 3, time.Minute)
	if ok {
		t.Fatal("fourth request should be rejected")
	}
	if retry <= 0 {
		t.Fatalf("expected positive retry hint, got %v", retry)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	m := NewMemory()

	if ok, _ := m.Allow("a", 1, time.Minute); !ok {
		t.Fatal("first key should be allowed")
	}
	if ok, _ := m.Allow("a", 1, time.Minute); ok {
		t.Fatal("first key should now be limited")
	}
	if ok, _ := m.Allow("b", 1, time.Minute); !ok {
		t.Fatal("second key must not share the bucket")
	}
}

func TestWindowReset(t *testing.T) {
	m := NewMemory()

	if ok, _ := m.Allow("k", 1, 10*time.Millisecond); !ok {
		t.Fatal("first request should be allowed")
	}
	time.Sleep(20 * time.Millisecond)
	if ok, _ := m.Allow("k", 1, 10*time.Millisecond); !ok {
		t.Fatal("request after window reset should be allowed")
	}
}

func TestPrune(t *testing.T) {
	m := NewMemory()

	m.Allow("stale", 1, 5*time.Millisecond)
	m.Allow("fresh", 1, time.Minute)
	time.Sleep(10 * time.Millisecond)
	m.Prune()

	if _, ok := m.store["stale"]; ok {
		t.Fatal("expired bucket should be pruned")
	}
	if _, ok := m.store["fresh"]; !ok {
		t.Fatal("live bucket should survive pruning")
	}
}

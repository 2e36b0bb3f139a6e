package httpmiddleware

import (
	"testing"
	"time"
)

func TestTokenBucketExhaustion(t *testing.T) {
	l := NewTokenBucket(3, 60)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4", now) {
			t.Fatalf("request %d denied before capacity", i+1)
		}
	}
	if l.Allow("1.2.3.4", now) {
		t.Error("request over capacity allowed")
	}
	// Other clients keep their own bucket.
	if !l.Allow("5.6.7.8", now) {
		t.Error("fresh client denied")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	l := NewTokenBucket(2, 60)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	l.Allow("1.2.3.4", now)
	l.Allow("1.2.3.4", now)
	if l.Allow("1.2.3.4", now) {
		t.Fatal("empty bucket allowed")
	}

	// 60/min refills one token per second.
	if !l.Allow("1.2.3.4", now.Add(time.Second)) {
		t.Error("refilled token denied")
	}
	if l.Allow("1.2.3.4", now.Add(time.Second)) {
		t.Error("second request on one refilled token allowed")
	}
}

func TestTokenBucketRefillCapped(t *testing.T) {
	l := NewTokenBucket(2, 60)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	l.Allow("1.2.3.4", now)

	// A long idle period refills back to capacity, not beyond.
	later := now.Add(time.Hour / 2)
	for i := 0; i < 2; i++ {
		if !l.Allow("1.2.3.4", later) {
			t.Fatalf("request %d denied after refill", i+1)
		}
	}
	if l.Allow("1.2.3.4", later) {
		t.Error("request over capped capacity allowed")
	}
}

func TestTokenBucketPrunesIdleClients(t *testing.T) {
	l := NewTokenBucket(1, 60)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	l.Allow("1.2.3.4", now)
	l.Allow("5.6.7.8", now.Add(2*time.Hour))

	l.mu.Lock()
	n := len(l.state)
	l.mu.Unlock()
	if n != 1 {
		t.Errorf("tracked clients = %d, want 1", n)
	}
}

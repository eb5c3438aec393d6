package api

import (
	"context"
	"testing"
	"time"
)

func TestRedisDeduperAddRemove(t *testing.T) {
	deduper, mr := newTestDeduper(t)
	ctx := context.Background()

	added, err := deduper.Add(ctx, "user", "k1")
	if err != nil || !added {
		t.Fatalf("expected first add to record key, got %v, %v", added, err)
	}
	added, err = deduper.Add(ctx, "user", "k1")
	if err != nil || added {
		t.Fatalf("expected second add to report duplicate, got %v, %v", added, err)
	}
	if added, _ := deduper.Add(ctx, "other", "k1"); !added {
		t.Fatalf("expected keys to be scoped per user")
	}

	expectedKey := "user:" + dedupeKeyPrefix + ":k1"
	if !mr.Exists(expectedKey) {
		t.Fatalf("expected redis key %q to exist", expectedKey)
	}
	if ttl := mr.TTL(expectedKey); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %v", ttl)
	}

	if err := deduper.Remove(ctx, "user", "k1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if added, _ := deduper.Add(ctx, "user", "k1"); !added {
		t.Fatalf("expected key to be reusable after remove")
	}

	mr.FastForward(2 * time.Minute)
	if added, _ := deduper.Add(ctx, "other", "k1"); !added {
		t.Fatalf("expected key to expire after ttl")
	}
}

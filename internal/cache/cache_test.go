package cache_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bidsprep/internal/cache"
	"bidsprep/internal/filekind"
	"bidsprep/internal/record"
)

func sequentialIDs() func() record.ID {
	var n int
	return func() record.ID {
		n++
		return record.ID(fmt.Sprintf("node-%d", n))
	}
}

func TestNodeIDIsStablePerPath(t *testing.T) {
	c := cache.NewWithIDs(sequentialIDs())

	a := c.NodeID("/data/s01/run1.con")
	b := c.NodeID("/data/s01/../s01/run1.con")
	other := c.NodeID("/data/s01/run2.con")
	if a != b {
		t.Fatalf("expected same id for equivalent paths, got %s and %s", a, b)
	}
	if a == other {
		t.Fatal("expected distinct ids for distinct paths")
	}
	if id, ok := c.Lookup("/data/s01/run1.con"); !ok || id != a {
		t.Fatalf("Lookup = %s, %v", id, ok)
	}
}

func TestDefaultIDsAreUUIDs(t *testing.T) {
	c := cache.New()
	id := c.NodeID("/data/s01/run1.con")
	if len(id) != 36 {
		t.Fatalf("expected uuid node id, got %q", id)
	}
}

func TestPutGetEvict(t *testing.T) {
	c := cache.NewWithIDs(sequentialIDs())
	id := c.NodeID("/data/s01/a.mrk")
	c.Put(record.NewFile(id, "/data/s01/a.mrk", filekind.Marker))

	if _, ok := c.Get(id); !ok {
		t.Fatal("expected record in cache")
	}
	if _, ok := c.Recording(id); ok {
		t.Fatal("marker must not be returned as recording")
	}
	c.Evict(id)
	if _, ok := c.Get(id); ok {
		t.Fatal("expected record evicted")
	}
	if again := c.NodeID("/data/s01/a.mrk"); again != id {
		t.Fatal("evicted path must keep its node id")
	}
}

func TestBeginSerializesLoadersPerKey(t *testing.T) {
	c := cache.New()
	ctx := context.Background()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := c.Begin(ctx, "/data/s01")
			if err != nil {
				t.Errorf("Begin: %v", err)
				return
			}
			defer release()
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	if maxActive != 1 {
		t.Fatalf("expected one loader in flight, saw %d", maxActive)
	}
	if c.InFlight("/data/s01") {
		t.Fatal("expected slot released")
	}
}

func TestBeginHonoursContext(t *testing.T) {
	c := cache.New()
	release, err := c.Begin(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Begin(ctx, "k"); err == nil {
		t.Fatal("expected context error while slot is held")
	}
}

package invalidation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/embld/contentcore/cache"
)

func TestBus_PublishIsSynchronous(t *testing.T) {
	b := NewBus()
	var got []string
	if _, err := b.Subscribe(func(_ context.Context, ev Event) { got = append(got, "a:"+ev.Tag) }); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe(func(_ context.Context, ev Event) { got = append(got, "b:"+ev.Tag) }); err != nil {
		t.Fatal(err)
	}

	b.Publish(context.Background(), "ideas")

	want := []string{"a:ideas", "b:ideas"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("delivered %v before return, want %v", got, want)
	}
}

func TestBus_EventTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewBus(WithClock(func() time.Time { return at }))

	var ev Event
	_, _ = b.Subscribe(func(_ context.Context, e Event) { ev = e })
	b.Publish(context.Background(), "ideas")

	if ev.Tag != "ideas" || !ev.EmittedAt.Equal(at) {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	unsubscribe, err := b.Subscribe(func(context.Context, Event) { calls++ })
	if err != nil {
		t.Fatal(err)
	}

	b.Publish(context.Background(), "t")
	unsubscribe()
	unsubscribe()
	b.Publish(context.Background(), "t")

	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBus_LateSubscriberMissesEarlierEvents(t *testing.T) {
	b := NewBus()
	b.Publish(context.Background(), "ideas")

	calls := 0
	_, _ = b.Subscribe(func(context.Context, Event) { calls++ })
	if calls != 0 {
		t.Errorf("late subscriber received %d historical events", calls)
	}
}

func TestBus_IgnoresEmptyTagAndNilHandler(t *testing.T) {
	b := NewBus()
	calls := 0
	_, _ = b.Subscribe(func(context.Context, Event) { calls++ })

	b.Publish(context.Background(), "")
	if calls != 0 {
		t.Error("empty tag should not be delivered")
	}

	if _, err := b.Subscribe(nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
}

func TestBus_PublishAllDeduplicates(t *testing.T) {
	b := NewBus()
	var got []string
	_, _ = b.Subscribe(func(_ context.Context, ev Event) { got = append(got, ev.Tag) })

	b.PublishAll(context.Background(), "ideas", "idea:1", "ideas", "", "idea")

	want := []string{"ideas", "idea:1", "idea"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	b := NewBus()
	_, _ = b.Subscribe(func(context.Context, Event) { panic("bad handler") })
	called := false
	_, _ = b.Subscribe(func(context.Context, Event) { called = true })

	b.Publish(context.Background(), "ideas")

	if !called {
		t.Error("second handler should still run")
	}
}

func TestBus_SameTagOrdering(t *testing.T) {
	b := NewBus()
	var mu sync.Mutex
	inHandler := 0
	maxConcurrent := 0
	_, _ = b.Subscribe(func(context.Context, Event) {
		mu.Lock()
		inHandler++
		if inHandler > maxConcurrent {
			maxConcurrent = inHandler
		}
		mu.Unlock()
		time.Sleep(100 * time.Microsecond)
		mu.Lock()
		inHandler--
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish(context.Background(), "ideas")
		}()
	}
	wg.Wait()

	if maxConcurrent != 1 {
		t.Errorf("publishes overlapped: max concurrent deliveries = %d", maxConcurrent)
	}
}

func TestBus_SubscribeDuringPublish(t *testing.T) {
	b := NewBus()
	lateCalls := 0
	_, _ = b.Subscribe(func(context.Context, Event) {
		// Subscribing from a handler is allowed; the new handler sees later events only.
		_, _ = b.Subscribe(func(context.Context, Event) { lateCalls++ })
	})

	b.Publish(context.Background(), "t")
	if lateCalls != 0 {
		t.Errorf("handler added during publish ran %d times for that publish", lateCalls)
	}
}

func TestEvict_InvalidatesCache(t *testing.T) {
	c := cache.NewMemoryCache(cache.DefaultPolicy())
	b := NewBus()
	unsubscribe, err := b.Subscribe(Evict(c))
	if err != nil {
		t.Fatal(err)
	}
	defer unsubscribe()

	ctx := context.Background()
	fetches := 0
	load := func(context.Context) (any, error) {
		fetches++
		return fetches, nil
	}

	v, _ := c.GetOrCompute(ctx, "ideas-list", time.Minute, []string{"ideas"}, load)
	b.Publish(ctx, "ideas")
	v2, _ := c.GetOrCompute(ctx, "ideas-list", time.Minute, []string{"ideas"}, load)

	if v == v2 || fetches != 2 {
		t.Errorf("read after publish must recompute: v=%v v2=%v fetches=%d", v, v2, fetches)
	}
}

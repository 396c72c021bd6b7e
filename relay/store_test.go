package relay

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Jafar777/Turbo-Essen-sub001/models"
)

func sample(orderID string, lat, lon float64) *models.LocationSample {
	return &models.LocationSample{
		OrderID:   orderID,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestGetBeforePut(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get("order1"); ok {
		t.Fatal("expected no sample before first put")
	}
}

func TestLastWriterWins(t *testing.T) {
	s := NewStore()
	s.Put(sample("order1", 52.52, 13.405))
	second := sample("order1", 52.53, 13.406)
	s.Put(second)

	got, ok := s.Get("order1")
	if !ok {
		t.Fatal("expected a sample")
	}
	if got != second {
		t.Fatalf("expected latest sample, got %+v", got)
	}
}

func TestPutIfAbsent(t *testing.T) {
	s := NewStore()

	mirror := sample("order1", 1, 1)
	if !s.PutIfAbsent(mirror) {
		t.Fatal("expected PutIfAbsent to store into an empty entry")
	}
	if got, _ := s.Get("order1"); got != mirror {
		t.Fatalf("expected mirror sample, got %+v", got)
	}

	live := sample("order1", 2, 2)
	s.Put(live)
	if s.PutIfAbsent(sample("order1", 3, 3)) {
		t.Fatal("PutIfAbsent must not displace an existing sample")
	}
	if got, _ := s.Get("order1"); got != live {
		t.Fatalf("live sample displaced: %+v", got)
	}
}

func TestPutIfAbsentWakesWaitingSubscriber(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe("order1")
	defer sub.Cancel()

	want := sample("order1", 1, 1)
	s.PutIfAbsent(want)

	select {
	case got := <-sub.C():
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("waiting subscriber not woken by PutIfAbsent")
	}
}

func TestPutIsolatedPerOrder(t *testing.T) {
	s := NewStore()
	s.Put(sample("order1", 1, 1))
	if _, ok := s.Get("order2"); ok {
		t.Fatal("sample leaked across orders")
	}
}

func TestConcurrentPuts(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Put(sample(fmt.Sprintf("order%d", i%5), float64(i), float64(i)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		if _, ok := s.Get(fmt.Sprintf("order%d", i)); !ok {
			t.Fatalf("order%d missing after concurrent puts", i)
		}
	}
}

func TestSubscribeReceivesPublish(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe("order1")
	defer sub.Cancel()

	want := sample("order1", 52.52, 13.405)
	s.Put(want)

	select {
	case got := <-sub.C():
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the published sample")
	}
}

func TestFanOut(t *testing.T) {
	s := NewStore()
	first := s.Subscribe("order1")
	defer first.Cancel()
	second := s.Subscribe("order1")
	defer second.Cancel()

	want := sample("order1", 52.52, 13.405)
	s.Put(want)

	for _, sub := range []*Subscription{first, second} {
		select {
		case got := <-sub.C():
			if got != want {
				t.Fatalf("got %+v, want %+v", got, want)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the published sample")
		}
	}
}

func TestSlowSubscriberSeesLatest(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe("order1")
	defer sub.Cancel()

	s.Put(sample("order1", 1, 1))
	latest := sample("order1", 2, 2)
	s.Put(latest)

	select {
	case got := <-sub.C():
		if got != latest {
			t.Fatalf("expected latest sample, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive any sample")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe("order1")
	sub.Cancel()

	if _, ok := <-sub.C(); ok {
		t.Fatal("expected closed channel after cancel")
	}

	// Idempotent, and publishes after cancel must not panic.
	sub.Cancel()
	s.Put(sample("order1", 1, 1))
}

func TestCancelDropsEmptyEntry(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe("order1")
	sub.Cancel()

	if n := s.Len(); n != 0 {
		t.Fatalf("expected empty store after lone subscriber cancelled, got %d entries", n)
	}
}

func TestEvictClosesSubscriptions(t *testing.T) {
	s := NewStore()
	s.Put(sample("order1", 1, 1))
	first := s.Subscribe("order1")
	second := s.Subscribe("order1")

	s.Evict("order1")

	for _, sub := range []*Subscription{first, second} {
		select {
		case _, ok := <-sub.C():
			if ok {
				t.Fatal("expected closed channel after evict")
			}
		case <-time.After(time.Second):
			t.Fatal("channel not closed after evict")
		}
	}

	if _, ok := s.Get("order1"); ok {
		t.Fatal("sample survived eviction")
	}

	// Cancel after evict must be a no-op.
	first.Cancel()
}

func TestEvictUnknownOrder(t *testing.T) {
	s := NewStore()
	s.Evict("missing")
}

func TestEvictIsolation(t *testing.T) {
	s := NewStore()
	kept := s.Subscribe("order2")
	defer kept.Cancel()
	s.Put(sample("order2", 1, 1))
	<-kept.C()

	s.Put(sample("order1", 2, 2))
	s.Evict("order1")

	want := sample("order2", 3, 3)
	s.Put(want)
	select {
	case got := <-kept.C():
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("unrelated subscriber affected by eviction")
	}
}

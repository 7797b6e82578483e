package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/veilapp/authcore/directory"
)

type blockingNotifier struct {
	release chan struct{}
	mu      sync.Mutex
	sent    int
}

func (n *blockingNotifier) Send(context.Context, directory.Purpose, string, string) error {
	<-n.release
	n.mu.Lock()
	n.sent++
	n.mu.Unlock()
	return nil
}

func (n *blockingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	notifier := &blockingNotifier{release: make(chan struct{})}
	d := NewDispatcher(notifier, 2)

	// One delivery occupies the worker, two fill the buffer; the rest must
	// be dropped without blocking.
	for i := 0; i < 6; i++ {
		d.Dispatch(Delivery{Address: "a@test.com", Code: "123456"})
	}

	deadline := time.After(2 * time.Second)
	for d.Dropped() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 drops, got %d", d.Dropped())
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(notifier.release)
	d.Close()

	if got := notifier.count(); got+int(d.Dropped()) != 6 {
		t.Fatalf("deliveries plus drops must cover every dispatch: %d + %d", got, d.Dropped())
	}
}

func TestDispatcherCloseDrains(t *testing.T) {
	notifier := &blockingNotifier{release: make(chan struct{})}
	close(notifier.release)

	d := NewDispatcher(notifier, 16)
	for i := 0; i < 10; i++ {
		d.Dispatch(Delivery{Address: "a@test.com", Code: "123456"})
	}
	d.Close()

	if got := notifier.count(); got != 10 {
		t.Fatalf("expected all 10 deliveries before Close returned, got %d", got)
	}

	// Dispatch after Close is a silent no-op.
	d.Dispatch(Delivery{Address: "a@test.com", Code: "123456"})
}

type failingNotifier struct{}

func (failingNotifier) Send(context.Context, directory.Purpose, string, string) error {
	return errors.New("gateway down")
}

func TestDispatcherSurvivesNotifierErrors(t *testing.T) {
	d := NewDispatcher(failingNotifier{}, 4)
	d.Dispatch(Delivery{Address: "a@test.com", Code: "123456"})
	d.Close()

	if d.Dropped() != 0 {
		t.Fatalf("delivery failures are not drops, got %d", d.Dropped())
	}
}

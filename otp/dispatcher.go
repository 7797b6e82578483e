package otp

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/veilapp/authcore/directory"
)

// Notifier delivers a plaintext code to an address. Implementations are
// expected to be mail or SMS gateways; delivery failures are logged and
// never retried synchronously.
type Notifier interface {
	Send(ctx context.Context, purpose directory.Purpose, address, code string) error
}

// Delivery is one queued notification.
type Delivery struct {
	Purpose directory.Purpose
	Address string
	Code    string
}

// Dispatcher decouples code delivery from the issuing request: Dispatch
// never blocks, and deliveries that cannot be queued are counted and
// dropped rather than stalling the flow.
type Dispatcher struct {
	notifier Notifier
	ch       chan Delivery
	done     chan struct{}
	wg       sync.WaitGroup
	dropped  atomic.Uint64
	closed   atomic.Bool
	once     sync.Once
}

// NewDispatcher starts a dispatcher over the notifier. A nil notifier
// yields a dispatcher that silently discards deliveries.
func NewDispatcher(notifier Notifier, bufferSize int) *Dispatcher {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}

	d := &Dispatcher{
		notifier: notifier,
		ch:       make(chan Delivery, bufferSize),
		done:     make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case delivery := <-d.ch:
			d.deliver(delivery)
		case <-d.done:
			for {
				select {
				case delivery := <-d.ch:
					d.deliver(delivery)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(delivery Delivery) {
	if err := d.notifier.Send(context.Background(), delivery.Purpose, delivery.Address, delivery.Code); err != nil {
		log.Print("authcore: otp notification dispatch failed")
	}
}

// Dispatch queues one delivery without blocking the caller.
func (d *Dispatcher) Dispatch(delivery Delivery) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- delivery:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
}

// Dropped reports how many deliveries were discarded on a full queue.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Close drains queued deliveries and stops the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.done)
	})
	d.wg.Wait()
}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, directory.Purpose, string, string) error {
	return nil
}

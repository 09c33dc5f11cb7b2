package watcher

import (
	"sync"
	"time"
)

// Debounced wraps a Source so that rapid events on the same path are
// delivered once, after the path has been quiet for the configured delay.
type Debounced struct {
	inner Source
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	events  chan Event
	errors  chan error
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
	firing  sync.WaitGroup
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

// NewDebounced wraps inner. A non-positive delay uses the default.
func NewDebounced(inner Source, delay time.Duration) *Debounced {
	if delay <= 0 {
		delay = DefaultConfig().DebounceDelay
	}
	d := &Debounced{
		inner:   inner,
		delay:   delay,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 100),
		errors:  make(chan error, 100),
		closeCh: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.processLoop()
	return d
}

// Watch starts watching dir.
func (d *Debounced) Watch(dir string) error {
	return d.inner.Watch(dir)
}

// Unwatch stops watching dir.
func (d *Debounced) Unwatch(dir string) error {
	return d.inner.Unwatch(dir)
}

// Events returns the debounced event channel.
func (d *Debounced) Events() <-chan Event {
	return d.events
}

// Errors returns the error channel.
func (d *Debounced) Errors() <-chan error {
	return d.errors
}

// Close drops pending events and closes the inner source.
func (d *Debounced) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.closeCh)
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.firing.Wait()
	close(d.events)
	close(d.errors)
	return d.inner.Close()
}

// Flush delivers every pending event immediately.
func (d *Debounced) Flush() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for path, p := range d.pending {
		p.timer.Stop()
		paths = append(paths, path)
	}
	d.mu.Unlock()

	for _, path := range paths {
		d.fire(path)
	}
}

// PendingCount returns the number of paths waiting to fire.
func (d *Debounced) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debounced) processLoop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.closeCh:
			return
		case event, ok := <-d.inner.Events():
			if !ok {
				return
			}
			d.handleEvent(event)
		case err, ok := <-d.inner.Errors():
			if !ok {
				return
			}
			select {
			case d.errors <- err:
			default:
			}
		}
	}
}

func (d *Debounced) handleEvent(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	if p, ok := d.pending[event.Path]; ok {
		p.event.Op |= event.Op
		p.event.Timestamp = event.Timestamp
		p.timer.Reset(d.delay)
		return
	}

	path := event.Path
	p := &pendingEvent{event: event}
	p.timer = time.AfterFunc(d.delay, func() {
		d.fire(path)
	})
	d.pending[path] = p
}

func (d *Debounced) fire(path string) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if !ok || d.closed {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	event := p.event
	d.firing.Add(1)
	d.mu.Unlock()
	defer d.firing.Done()

	select {
	case d.events <- event:
	case <-d.closeCh:
	}
}

var _ Source = (*Debounced)(nil)

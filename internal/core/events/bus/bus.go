// Package bus fans tree notifications out to subscribers that live outside
// the instance tree, such as editors, replication and tooling.
package bus

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultTopic receives every event published with Publish.
const DefaultTopic = ""

// AnyType subscribes to every event type of a topic.
const AnyType = "*"

// Event is a read-only notification about one node.
type Event struct {
	Type      string
	Source    string // full name of the node at publish time
	UniqueID  string
	Class     string
	Timestamp time.Time
	Data      map[string]any
}

type (
	// Handler is called once per delivered event. Errors are joined and
	// returned from the publishing call.
	Handler func(Event) error
	// Filter drops an event before delivery when it returns false.
	Filter func(Event) bool
)

// Observer is told about every delivery. Observers should return quickly.
type Observer interface {
	OnDelivered(topic string, e Event, handlers int, err error, took time.Duration)
}

// Stats are cumulative delivery counters.
type Stats struct {
	Published uint64
	Delivered uint64
	Failed    uint64
	Dropped   uint64
}

// TopicInfo describes one topic.
type TopicInfo struct {
	Name string
	Subs int
}

// Subscription is a registered handler. Cancel is idempotent.
type Subscription struct {
	id        string
	topic     string
	eventType string
	handler   Handler
	filters   []Filter
	active    atomic.Bool
	bus       *Bus
}

func (s *Subscription) ID() string        { return s.id }
func (s *Subscription) Topic() string     { return s.topic }
func (s *Subscription) EventType() string { return s.eventType }
func (s *Subscription) Active() bool      { return s != nil && s.active.Load() }

func (s *Subscription) Cancel() {
	if s == nil || !s.active.CompareAndSwap(true, false) {
		return
	}
	s.bus.remove(s)
}

func (s *Subscription) accepts(e Event) bool {
	if s.eventType != AnyType && s.eventType != e.Type {
		return false
	}
	for _, f := range s.filters {
		if !f(e) {
			return false
		}
	}
	return true
}

// Bus is a synchronous in-process pub/sub bus. Handlers run on the
// publishing goroutine in subscription order.
type Bus struct {
	mu        sync.RWMutex
	topics    map[string][]*Subscription
	observers []Observer

	published atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

func New() *Bus {
	return &Bus{topics: map[string][]*Subscription{DefaultTopic: nil}}
}

// Subscribe registers h for eventType on the default topic.
func (b *Bus) Subscribe(eventType string, h Handler, filters ...Filter) *Subscription {
	return b.SubscribeTopic(DefaultTopic, eventType, h, filters...)
}

// SubscribeTopic registers h for eventType on topic, creating the topic.
func (b *Bus) SubscribeTopic(topic, eventType string, h Handler, filters ...Filter) *Subscription {
	s := &Subscription{
		id:        uuid.NewString(),
		topic:     topic,
		eventType: eventType,
		handler:   h,
		filters:   filters,
		bus:       b,
	}
	s.active.Store(true)

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], s)
	b.mu.Unlock()
	return s
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.topics[s.topic]
	if i := slices.Index(subs, s); i >= 0 {
		b.topics[s.topic] = slices.Delete(slices.Clone(subs), i, i+1)
	}
}

// Publish delivers e on the default topic.
func (b *Bus) Publish(e Event) error {
	return b.PublishTo(DefaultTopic, e)
}

// PublishTo delivers e to the matching subscribers of topic. A zero
// Timestamp is set to now.
func (b *Bus) PublishTo(topic string, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	start := time.Now()

	b.mu.RLock()
	subs := b.topics[topic]
	observers := b.observers
	b.mu.RUnlock()

	var errs []error
	handlers := 0
	for _, s := range subs {
		if !s.Active() {
			continue
		}
		if !s.accepts(e) {
			if s.eventType == AnyType || s.eventType == e.Type {
				b.dropped.Add(1)
			}
			continue
		}
		handlers++
		if err := s.handler(e); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)

	b.published.Add(1)
	b.delivered.Add(uint64(handlers))
	if err != nil {
		b.failed.Add(1)
	}
	took := time.Since(start)
	for _, obs := range observers {
		obs.OnDelivered(topic, e, handlers, err, took)
	}
	return err
}

// PublishAsync publishes on a new goroutine. The channel yields the joined
// handler error, or nil, and is then closed.
func (b *Bus) PublishAsync(topic string, e Event) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- b.PublishTo(topic, e)
		close(ch)
	}()
	return ch
}

// PublishBatch publishes events in order on topic and joins their errors.
func (b *Bus) PublishBatch(topic string, events ...Event) error {
	var errs []error
	for _, e := range events {
		if err := b.PublishTo(topic, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) AddObserver(obs Observer) {
	b.mu.Lock()
	b.observers = append(slices.Clone(b.observers), obs)
	b.mu.Unlock()
}

func (b *Bus) RemoveObserver(obs Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := slices.Index(b.observers, obs); i >= 0 {
		b.observers = slices.Delete(slices.Clone(b.observers), i, i+1)
	}
}

func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Failed:    b.failed.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// Topics lists topics sorted by name.
func (b *Bus) Topics() []TopicInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]TopicInfo, 0, len(b.topics))
	for name, subs := range b.topics {
		out = append(out, TopicInfo{Name: name, Subs: len(subs)})
	}
	slices.SortFunc(out, func(a, b TopicInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Close cancels every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	topics := b.topics
	b.topics = map[string][]*Subscription{DefaultTopic: nil}
	b.observers = nil
	b.mu.Unlock()
	for _, subs := range topics {
		for _, s := range subs {
			s.active.Store(false)
		}
	}
}

package engine

import (
	"time"

	"github.com/zeusync/scenecore/internal/core/events/bus"
	"github.com/zeusync/scenecore/internal/core/events/signal"
	"github.com/zeusync/scenecore/internal/core/instance"
	"github.com/zeusync/scenecore/internal/core/observability/log"
)

// Feed event types.
const (
	EventInstanceAdded    = "instance.added"
	EventInstanceRemoving = "instance.removing"
)

// Feed republishes root descendant notifications on a bus. Every event goes
// to the default topic; events for nodes inside a world also go to the topic
// named after that world.
type Feed struct {
	bus   *bus.Bus
	log   log.Log
	conns []*signal.Connection
}

// NewFeed attaches a feed to the root of tree.
func NewFeed(tree *instance.Context, b *bus.Bus, logger log.Log) *Feed {
	f := &Feed{bus: b, log: logger.Named("feed")}
	root := tree.Root()
	f.conns = append(f.conns,
		root.DescendantAdded.Connect(func(n *instance.Instance) {
			f.publish(EventInstanceAdded, n)
		}),
		root.DescendantRemoving.Connect(func(n *instance.Instance) {
			f.publish(EventInstanceRemoving, n)
		}),
	)
	b.AddObserver(f)
	return f
}

// Bus returns the underlying bus.
func (f *Feed) Bus() *bus.Bus { return f.bus }

func (f *Feed) publish(eventType string, n *instance.Instance) {
	e := bus.Event{
		Type:     eventType,
		Source:   n.FullName(),
		UniqueID: n.UniqueID(),
		Class:    n.ClassName(),
	}
	_ = f.bus.Publish(e)
	if w := n.World(); w != nil && w != n {
		_ = f.bus.PublishTo(w.Name(), e)
	}
}

// OnDelivered logs handler failures. Publishing never fails a tree mutation.
func (f *Feed) OnDelivered(topic string, e bus.Event, handlers int, err error, took time.Duration) {
	if err == nil {
		return
	}
	f.log.Warn("feed handler failed",
		log.String("topic", topic),
		log.String("event", e.Type),
		log.String("source", e.Source),
		log.Int("handlers", handlers),
		log.Duration("took", took),
		log.Error(err))
}

// Close detaches the feed from the tree and cancels every subscription.
func (f *Feed) Close() {
	for _, c := range f.conns {
		c.Disconnect()
	}
	f.bus.Close()
}

/*
Package coordinator implements the dump coordinator: the single goroutine
that owns the aggregation tree exclusively, consuming Add/Dump/Terminate
events from one ordered channel and draining walks into batches for a
publisher. No other goroutine reads or writes the tree, so the tree itself
needs no locking.
*/
package coordinator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ipaggregator/ipaggregator/internal/ipaggerr"
	"github.com/ipaggregator/ipaggregator/internal/octree"
)

// batchSize is the maximum number of CIDR pairs per batch sent to the
// publisher queue; a dump is complete once a batch comes back shorter than
// this.
const batchSize = 1000

// Event is the sum type consumed from the coordinator's single ordered
// queue.
type Event interface {
	isEvent()
}

// AddEvent carries one receiver batch of parsed addresses to insert.
type AddEvent struct {
	Addresses [][4]byte
}

// DumpEvent requests that the current aggregate set be drained to the
// publisher queue.
type DumpEvent struct{}

// TerminateEvent requests orderly shutdown: the publisher queue is released
// and the coordinator exits.
type TerminateEvent struct{}

func (AddEvent) isEvent()       {}
func (DumpEvent) isEvent()      {}
func (TerminateEvent) isEvent() {}

// Coordinator owns the aggregation tree and drives it from a single ordered
// event queue.
type Coordinator struct {
	tree           *octree.Tree
	clearAfterDump bool
	events         <-chan Event
	batches        chan<- []octree.CIDR
}

// New builds a Coordinator over tree, consuming from events and emitting
// batches. clearAfterDump selects the "clear after dump" extension policy;
// the spec's default is false (never clear).
func New(tree *octree.Tree, events <-chan Event, batches chan<- []octree.CIDR, clearAfterDump bool) *Coordinator {
	return &Coordinator{tree: tree, clearAfterDump: clearAfterDump, events: events, batches: batches}
}

// Run processes events until a TerminateEvent is received or the event
// channel closes. It returns an error only for an internal invariant
// violation (e.g. the publisher queue having been closed out from under
// it) - a bug, not bad input.
func (c *Coordinator) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: coordinator panic: %v", ipaggerr.ErrInternalInvariant, r)
		}
	}()
	defer close(c.batches)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-c.events:
			if !ok {
				return nil
			}
			switch e := ev.(type) {
			case AddEvent:
				for _, addr := range e.Addresses {
					c.tree.Add(addr)
				}
			case DumpEvent:
				if err := c.dump(); err != nil {
					return err
				}
			case TerminateEvent:
				return nil
			default:
				return fmt.Errorf("%w: unknown event type %T", ipaggerr.ErrInternalInvariant, ev)
			}
		}
	}
}

// dump drains one walk of the tree into batches of at most batchSize pairs.
// A batch shorter than batchSize signals the dump is complete; two Dump
// events are never interleaved since events are processed serially.
func (c *Coordinator) dump() error {
	batch := make([]octree.CIDR, 0, batchSize)
	flush := func() error {
		select {
		case c.batches <- batch:
		default:
			logrus.Warn("publisher queue full, blocking aggregator until it drains")
			c.batches <- batch
		}
		return nil
	}

	for cidr := range c.tree.Walk() {
		batch = append(batch, cidr)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
			batch = make([]octree.CIDR, 0, batchSize)
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if c.clearAfterDump {
		c.tree.Clear()
	}
	return nil
}

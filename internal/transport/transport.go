// Package transport defines the contracts the dump coordinator's
// surrounding collaborators must satisfy. Per the design's treatment of
// receivers, publishers, and message brokers as external collaborators,
// only the boundary touching the core is specified here; concrete
// implementations live in the datagram and bus subpackages.
package transport

import (
	"context"

	"github.com/ipaggregator/ipaggregator/internal/octree"
)

// Receiver reads from an external address source until ctx is cancelled or
// the source signals its own shutdown (e.g. the datagram STOP! sentinel),
// sending each parsed batch of addresses to out.
type Receiver interface {
	Run(ctx context.Context, out chan<- [][4]byte) error
}

// Publisher sends one formatted batch of CIDR pairs downstream.
type Publisher interface {
	Publish(batch []octree.CIDR) error
	Close() error
}

/*
Package bus implements the message-bus receiver and publisher named in
receiver.kind/sender.kind = "bus". No broker client library (Kafka, NATS,
AMQP, ...) appears anywhere in the retrieved example corpus, so this package
specifies the transport only down to the Broker seam a real client would
implement - matching the design's treatment of external collaborators as
contracts rather than full implementations. memBroker is a minimal
in-process implementation of that seam, useful for local testing.
*/
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ipaggregator/ipaggregator/internal/format"
	"github.com/ipaggregator/ipaggregator/internal/ipaggerr"
	"github.com/ipaggregator/ipaggregator/internal/octree"
	"github.com/ipaggregator/ipaggregator/internal/parse"
)

// Broker is the seam a real message-bus client (consumer group, producer,
// topic) would implement.
type Broker interface {
	// Subscribe delivers each message body published to topic within group.
	Subscribe(ctx context.Context, topic, group string) (<-chan []byte, error)
	// Publish sends one message body to topic.
	Publish(topic string, body []byte) error
	// Close releases broker resources.
	Close() error
}

// Dial returns an in-process memBroker; hosts is only checked for being
// non-empty and no network connection is made. An empty hosts list fails
// with ErrBusConnect, which is fatal at startup.
func Dial(hosts []string) (Broker, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("%w: no broker hosts configured", ipaggerr.ErrBusConnect)
	}
	return newMemBroker(), nil
}

// Receiver consumes address batches from a bus topic.
type Receiver struct {
	broker Broker
	topic  string
	group  string
}

// NewReceiver builds a bus Receiver bound to topic/group on broker.
func NewReceiver(broker Broker, topic, group string) *Receiver {
	return &Receiver{broker: broker, topic: topic, group: group}
}

// Run consumes messages until ctx is cancelled, parsing each message body
// the same way a datagram payload is parsed.
func (r *Receiver) Run(ctx context.Context, out chan<- [][4]byte) error {
	msgs, err := r.broker.Subscribe(ctx, r.topic, r.group)
	if err != nil {
		return fmt.Errorf("%w: %v", ipaggerr.ErrBusConnect, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case body, ok := <-msgs:
			if !ok {
				return nil
			}
			addrs, perr := parse.Addresses(body)
			if perr != nil {
				logrus.WithError(perr).Warn("dropping malformed token(s) in bus message")
			}
			if len(addrs) > 0 {
				select {
				case out <- addrs:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// Publisher publishes formatted CIDR batches to a bus topic.
type Publisher struct {
	broker Broker
	topic  string
}

// NewPublisher builds a bus Publisher bound to topic on broker.
func NewPublisher(broker Broker, topic string) *Publisher {
	return &Publisher{broker: broker, topic: topic}
}

// Publish sends one message per formatted chunk of batch.
func (p *Publisher) Publish(batch []octree.CIDR) error {
	for _, msg := range format.Batches(batch, format.MaxUDPPayload) {
		if err := p.broker.Publish(p.topic, []byte(msg)); err != nil {
			logrus.WithError(err).Warn("bus send failed, continuing with remaining batches")
		}
	}
	return nil
}

// Close releases the underlying broker.
func (p *Publisher) Close() error {
	return p.broker.Close()
}

// memBroker is an in-process Broker: messages published to a topic are
// fanned out to every subscriber of that topic. It exists to exercise the
// Receiver/Publisher contracts in tests without a real broker dependency.
type memBroker struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

func newMemBroker() *memBroker {
	return &memBroker{subs: make(map[string][]chan []byte)}
}

func (b *memBroker) Subscribe(ctx context.Context, topic, _ string) (<-chan []byte, error) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[topic]
		for i, c := range subs {
			if c == ch {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (b *memBroker) Publish(topic string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- body:
		default:
			return fmt.Errorf("%w: subscriber channel full for topic %q", ipaggerr.ErrSendFailure, topic)
		}
	}
	return nil
}

func (b *memBroker) Close() error {
	return nil
}

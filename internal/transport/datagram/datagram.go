/*
Package datagram implements the UDP receiver and publisher named in the
external interfaces: whitespace-separated dotted-quad addresses in, up to
2048 bytes per packet; "a.b.c.d/m" batches out, up to 508 bytes per packet.
Grounded in the original source's udp.rs, which binds a raw UDP socket
directly rather than going through a higher-level framework.
*/
package datagram

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/ipaggregator/ipaggregator/internal/format"
	"github.com/ipaggregator/ipaggregator/internal/ipaggerr"
	"github.com/ipaggregator/ipaggregator/internal/octree"
	"github.com/ipaggregator/ipaggregator/internal/parse"
)

// MaxDatagramSize is the largest inbound payload the receiver will read.
const MaxDatagramSize = 2048

// socketBufferBytes is the SO_RCVBUF/SO_SNDBUF size requested on the
// underlying file descriptor; bursts of many small address-bearing
// datagrams are the expected traffic pattern, so a larger-than-default
// kernel buffer avoids drops under load.
const socketBufferBytes = 1 << 20

// Receiver reads IPv4 addresses from a UDP socket.
type Receiver struct {
	conn *net.UDPConn
}

// NewReceiver binds a UDP socket at bindAddr.
func NewReceiver(bindAddr string) (*Receiver, error) {
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ipaggerr.ErrBindAddress, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ipaggerr.ErrBindAddress, err)
	}
	tuneBuffers(conn)
	return &Receiver{conn: conn}, nil
}

// Run reads datagrams until ctx is cancelled or a STOP! payload arrives.
func (r *Receiver) Run(ctx context.Context, out chan<- [][4]byte) error {
	defer r.conn.Close()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		r.conn.Close()
		close(done)
	}()

	buf := make([]byte, MaxDatagramSize)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-done:
				return nil
			default:
			}
			return fmt.Errorf("%w: %v", ipaggerr.ErrInternalInvariant, err)
		}

		payload := buf[:n]
		if string(payload) == parse.StopSentinel {
			return nil
		}

		addrs, perr := parse.Addresses(payload)
		if perr != nil {
			logrus.WithError(perr).Warn("dropping malformed token(s) in datagram payload")
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

// Publisher sends formatted CIDR batches as UDP datagrams.
type Publisher struct {
	conn   *net.UDPConn
	target *net.UDPAddr
}

// NewPublisher opens an ephemeral UDP socket for sending to target.
func NewPublisher(target string) (*Publisher, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ipaggerr.ErrBindAddress, err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ipaggerr.ErrBindAddress, err)
	}
	tuneBuffers(conn)
	return &Publisher{conn: conn, target: addr}, nil
}

// Publish sends one datagram per formatted chunk of batch.
func (p *Publisher) Publish(batch []octree.CIDR) error {
	for _, msg := range format.Batches(batch, format.MaxUDPPayload) {
		if _, err := p.conn.WriteToUDP([]byte(msg), p.target); err != nil {
			logrus.WithError(err).Warn("datagram send failed, continuing with remaining batches")
		}
	}
	return nil
}

// Close releases the publisher's socket.
func (p *Publisher) Close() error {
	return p.conn.Close()
}

// tuneBuffers widens the kernel socket buffers via the raw file descriptor.
// Best-effort: a failure here is logged, not fatal, since the socket is
// already usable with its default buffer sizes.
func tuneBuffers(conn *net.UDPConn) {
	raw, err := conn.SyscallConn()
	if err != nil {
		logrus.WithError(err).Debug("could not obtain raw socket for buffer tuning")
		return
	}
	ctrlErr := raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), syscall.SOL_SOCKET, unix.SO_RCVBUF, socketBufferBytes); err != nil {
			logrus.WithError(err).Debug("SO_RCVBUF tuning failed")
		}
		if err := unix.SetsockoptInt(int(fd), syscall.SOL_SOCKET, unix.SO_SNDBUF, socketBufferBytes); err != nil {
			logrus.WithError(err).Debug("SO_SNDBUF tuning failed")
		}
	})
	if ctrlErr != nil {
		logrus.WithError(ctrlErr).Debug("raw socket control failed during buffer tuning")
	}
}

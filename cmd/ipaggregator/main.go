// Command ipaggregator runs the always-on IP-subnet aggregation service: it
// wires a receiver, the dump coordinator (which owns the aggregation tree),
// a periodic dump timer, and a publisher into a four-goroutine pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ipaggregator/ipaggregator/internal/config"
	"github.com/ipaggregator/ipaggregator/internal/coordinator"
	"github.com/ipaggregator/ipaggregator/internal/ipaggerr"
	"github.com/ipaggregator/ipaggregator/internal/octree"
	"github.com/ipaggregator/ipaggregator/internal/transport"
	"github.com/ipaggregator/ipaggregator/internal/transport/bus"
	"github.com/ipaggregator/ipaggregator/internal/transport/datagram"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "", "explicit path to settings.yaml")
		receiverBnd = flag.String("receiver.bind", "", "override receiver.bind")
		senderTgt   = flag.String("sender.target", "", "override sender.target")
		timerSecs   = flag.Int("publish_timer", 0, "override publish_timer (seconds)")
	)
	flag.Parse()

	settings := config.Load(*configPath)
	if *receiverBnd != "" {
		settings.Receiver.Bind = *receiverBnd
	}
	if *senderTgt != "" {
		settings.Sender.Target = *senderTgt
	}
	if *timerSecs != 0 {
		settings.PublishTimerSeconds = *timerSecs
	}

	receiver, publisher, err := buildTransports(settings)
	if err != nil {
		logrus.WithError(err).Error("fatal startup error")
		return 1
	}
	defer publisher.Close()

	tree := octree.New(octree.Seeding{
		Zeroed:    settings.AutoAddZeroed,
		Broadcast: settings.AutoAddBroadcast,
	})

	events := make(chan coordinator.Event, 256)
	batches := make(chan []octree.CIDR, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coord := coordinator.New(tree, events, batches, settings.ClearAfterDump)
	timer := coordinator.NewTimer(time.Duration(settings.PublishTimerSeconds)*time.Second, events)

	var coordErr error
	coordDone := make(chan struct{})
	go func() {
		defer close(coordDone)
		coordErr = coord.Run(ctx)
	}()

	go timer.Run(ctx)

	recvDone := make(chan error, 1)
	go func() {
		addrBatches := make(chan [][4]byte, 16)
		go func() {
			for batch := range addrBatches {
				events <- coordinator.AddEvent{Addresses: batch}
			}
		}()
		recvDone <- receiver.Run(ctx, addrBatches)
	}()

	go func() {
		for batch := range batches {
			if err := publisher.Publish(batch); err != nil {
				logrus.WithError(err).Warn("publish failed for this batch")
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logrus.Info("shutdown signal received")
	case err := <-recvDone:
		if err != nil {
			logrus.WithError(err).Error("receiver exited with error")
		}
	case <-coordDone:
	}

	events <- coordinator.TerminateEvent{}
	cancel()
	<-coordDone

	if coordErr != nil {
		logrus.WithError(coordErr).Error("coordinator exited with error")
		return 1
	}
	return 0
}

func buildTransports(settings config.Settings) (transport.Receiver, transport.Publisher, error) {
	var (
		receiver  transport.Receiver
		publisher transport.Publisher
		err       error
	)

	switch settings.Receiver.Kind {
	case "bus":
		broker, derr := bus.Dial(settings.Receiver.Bus.Hosts)
		if derr != nil {
			return nil, nil, derr
		}
		receiver = bus.NewReceiver(broker, settings.Receiver.Bus.Topic, settings.Receiver.Bus.Group)
	case "datagram":
		receiver, err = datagram.NewReceiver(settings.Receiver.Bind)
	default:
		return nil, nil, fmt.Errorf("%w: unknown receiver.kind %q", ipaggerr.ErrConfigParse, settings.Receiver.Kind)
	}
	if err != nil {
		return nil, nil, err
	}

	switch settings.Sender.Kind {
	case "bus":
		broker, derr := bus.Dial(settings.Sender.Bus.Hosts)
		if derr != nil {
			return nil, nil, derr
		}
		publisher = bus.NewPublisher(broker, settings.Sender.Bus.Topic)
	case "datagram":
		publisher, err = datagram.NewPublisher(settings.Sender.Target)
	default:
		return nil, nil, fmt.Errorf("%w: unknown sender.kind %q", ipaggerr.ErrConfigParse, settings.Sender.Kind)
	}
	if err != nil {
		return nil, nil, err
	}

	return receiver, publisher, nil
}

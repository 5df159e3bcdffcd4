package hazel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/amongo/amongo/internal/hazel"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	sent     metric.Int64Counter
	received metric.Int64Counter
	timeouts metric.Int64Counter
	pending  metric.Int64ObservableGauge
	reg      metric.Registration
}

// newMetrics uses the global OTel meter, which is a no-op unless a provider
// has been installed.
func newMetrics(c *Conn) (*metrics, error) {
	m := meter()
	out := &metrics{}

	var err error
	out.sent, err = m.Int64Counter(
		"hazel.datagrams.sent",
		metric.WithDescription("Datagrams written to the socket"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sent counter: %w", err)
	}

	out.received, err = m.Int64Counter(
		"hazel.datagrams.received",
		metric.WithDescription("Datagrams read from the socket"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating received counter: %w", err)
	}

	out.timeouts, err = m.Int64Counter(
		"hazel.reliable.timeouts",
		metric.WithDescription("Reliable sends that hit the ack timeout"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating timeout counter: %w", err)
	}

	out.pending, err = m.Int64ObservableGauge(
		"hazel.reliable.pending",
		metric.WithDescription("Reliable sends waiting for an acknowledgement"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pending gauge: %w", err)
	}

	remote := attribute.String("remote", c.conn.RemoteAddr().String())
	out.reg, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			c.mu.Lock()
			n := len(c.pending)
			c.mu.Unlock()
			o.ObserveInt64(out.pending, int64(n), metric.WithAttributes(remote))
			return nil
		},
		out.pending,
	)
	if err != nil {
		return nil, fmt.Errorf("registering pending callback: %w", err)
	}

	return out, nil
}

func kindAttr(t PacketType) metric.AddOption {
	return metric.WithAttributes(attribute.String("kind", t.String()))
}

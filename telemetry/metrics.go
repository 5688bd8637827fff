// Package telemetry holds the OpenTelemetry instruments for the client core.
// Instruments come from the global provider and are no-ops unless an SDK is
// installed by the host.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/automoto/convoy-mp/telemetry"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics is safe to use as a nil pointer; every method then does nothing.
type Metrics struct {
	snapshotsDecoded  metric.Int64Counter
	snapshotsDropped  metric.Int64Counter
	historyEvictions  metric.Int64Counter
	reconciliations   metric.Int64Counter
	predictionError   metric.Float64Histogram
	inputsSent        metric.Int64Counter
	interpolationSkip metric.Int64Counter
}

func New() (*Metrics, error) {
	m := meter()
	out := &Metrics{}
	var err error

	if out.snapshotsDecoded, err = m.Int64Counter("netcode.snapshots.decoded",
		metric.WithDescription("World snapshots decoded and buffered")); err != nil {
		return nil, fmt.Errorf("creating decoded counter: %w", err)
	}
	if out.snapshotsDropped, err = m.Int64Counter("netcode.snapshots.dropped",
		metric.WithDescription("World snapshots dropped, by reason")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if out.historyEvictions, err = m.Int64Counter("netcode.history.evictions",
		metric.WithDescription("Snapshots evicted from a full history")); err != nil {
		return nil, fmt.Errorf("creating eviction counter: %w", err)
	}
	if out.reconciliations, err = m.Int64Counter("netcode.reconciliations",
		metric.WithDescription("Reconciliations, by entity and outcome")); err != nil {
		return nil, fmt.Errorf("creating reconciliation counter: %w", err)
	}
	if out.predictionError, err = m.Float64Histogram("netcode.prediction.error",
		metric.WithDescription("Distance between rewound prediction and server state"),
		metric.WithUnit("{unit}")); err != nil {
		return nil, fmt.Errorf("creating error histogram: %w", err)
	}
	if out.inputsSent, err = m.Int64Counter("netcode.inputs.sent",
		metric.WithDescription("Input frames handed to the transport")); err != nil {
		return nil, fmt.Errorf("creating input counter: %w", err)
	}
	if out.interpolationSkip, err = m.Int64Counter("netcode.interpolation.skipped",
		metric.WithDescription("Frames the interpolator skipped for lack of history")); err != nil {
		return nil, fmt.Errorf("creating skip counter: %w", err)
	}
	return out, nil
}

func (m *Metrics) SnapshotDecoded() {
	if m == nil {
		return
	}
	m.snapshotsDecoded.Add(context.Background(), 1)
}

// Reasons passed to SnapshotDropped.
const (
	DropMalformed  = "malformed"
	DropOutOfOrder = "out_of_order"
)

// SnapshotDropped counts a discarded snapshot; reason is DropMalformed or
// DropOutOfOrder.
func (m *Metrics) SnapshotDropped(reason string) {
	if m == nil {
		return
	}
	m.snapshotsDropped.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) HistoryEvicted() {
	if m == nil {
		return
	}
	m.historyEvictions.Add(context.Background(), 1)
}

func (m *Metrics) Reconciled(entity, outcome string, errorDistance float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("outcome", outcome))
	m.reconciliations.Add(context.Background(), 1, attrs)
	m.predictionError.Record(context.Background(), errorDistance,
		metric.WithAttributes(attribute.String("entity", entity)))
}

func (m *Metrics) InputSent(entity string, ok bool) {
	if m == nil {
		return
	}
	m.inputsSent.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.Bool("ok", ok)))
}

func (m *Metrics) InterpolationSkipped() {
	if m == nil {
		return
	}
	m.interpolationSkip.Add(context.Background(), 1)
}

package reconcile

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/fwojciec/deck/reconcile"

type metrics struct {
	inserts    metric.Int64Counter
	commits    metric.Int64Counter
	dropped    metric.Int64Counter
	sinkErrors metric.Int64Counter
	focusJumps metric.Int64Counter
}

func newMetrics(meter metric.Meter, logger logrus.FieldLogger) *metrics {
	m := &metrics{}
	for _, c := range []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.inserts, "deck.reconcile.inserts", "Infographics inserted from streamed create calls"},
		{&m.commits, "deck.reconcile.commits", "Throttled content updates applied"},
		{&m.dropped, "deck.reconcile.dropped_fragments", "Edit fragments dropped for lack of an infographic id"},
		{&m.sinkErrors, "deck.reconcile.sink_errors", "Slide mutations that failed"},
		{&m.focusJumps, "deck.reconcile.focus_jumps", "Focus notifications for edit calls"},
	} {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("{event}"))
		if err != nil {
			logger.WithError(err).Warnf("reconcile: counter %s unavailable", c.name)
			counter = noop.Int64Counter{}
		}
		*c.dst = counter
	}
	return m
}

func (m *metrics) add(c metric.Int64Counter) {
	c.Add(context.Background(), 1)
}

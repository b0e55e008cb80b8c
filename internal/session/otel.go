package session

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tarkov-debrief/debrief/internal/session"

// meter returns the package meter. It is a no-op unless a global provider is installed.
func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	mutations   metric.Int64Counter
	exports     metric.Int64Counter
	toolSwitches metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := meter()
	var (
		out metrics
		err error
	)
	out.mutations, err = m.Int64Counter(
		"debrief.session.mutations",
		metric.WithDescription("History changes: commits, undos and redos"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mutations counter: %w", err)
	}
	out.exports, err = m.Int64Counter(
		"debrief.session.exports",
		metric.WithDescription("PNG exports rendered"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exports counter: %w", err)
	}
	out.toolSwitches, err = m.Int64Counter(
		"debrief.session.tool_switches",
		metric.WithDescription("Tool changes including temporary pan overrides"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tool switch counter: %w", err)
	}
	return &out, nil
}

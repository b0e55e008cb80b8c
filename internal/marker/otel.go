package marker

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tarkov-debrief/debrief/internal/marker"

// meter returns the package meter. It is a no-op unless a global provider is installed.
func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

package frameindex

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/dataviewer2d/dataviewer/internal/frameindex"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

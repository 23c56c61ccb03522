package influx

import (
	"time"

	"github.com/dataviewer2d/dataviewer/internal/frameindex"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	// MeasurementFrame holds per-frame shape counts.
	MeasurementFrame = "frame_shapes"
	// MeasurementDataset holds one summary per indexed log.
	MeasurementDataset = "dataset_summary"
)

// KindCounts counts the shapes of a scene per kind.
type KindCounts struct {
	Line    int
	CLine   int
	Circle  int
	Polygon int
}

// Total returns the number of counted shapes.
func (c KindCounts) Total() int {
	return c.Line + c.CLine + c.Circle + c.Polygon
}

// Count tallies the shapes of s.
func Count(s scene.Scene) KindCounts {
	var c KindCounts
	for _, shape := range s {
		switch shape.Kind {
		case scene.KindLine:
			c.Line++
		case scene.KindCLine:
			c.CLine++
		case scene.KindCircle:
			c.Circle++
		case scene.KindPolygon:
			c.Polygon++
		}
	}
	return c
}

// FramePoint builds the per-frame point.
func FramePoint(dataset string, frame int, counts KindCounts, ts time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementFrame,
		map[string]string{"dataset": dataset},
		map[string]interface{}{
			"frame":   frame,
			"total":   counts.Total(),
			"line":    counts.Line,
			"cline":   counts.CLine,
			"circle":  counts.Circle,
			"polygon": counts.Polygon,
		},
		ts,
	)
}

// SummaryPoint builds the dataset point. Extent fields are left out when the index has no
// bounding box.
func SummaryPoint(dataset string, info frameindex.Info, decodeErrors int, ts time.Time) *influxdb2_write.Point {
	fields := map[string]interface{}{
		"nframes":       info.NFrames,
		"decode_errors": decodeErrors,
	}
	if !info.Empty() {
		fields["min_x"] = info.MinXY.X
		fields["min_y"] = info.MinXY.Y
		fields["max_x"] = info.MaxXY.X
		fields["max_y"] = info.MaxXY.Y
	}
	return influxdb2_write.NewPoint(MeasurementDataset, map[string]string{"dataset": dataset}, fields, ts)
}

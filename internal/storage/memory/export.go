// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// Export is the root JSON structure
type Export struct {
	Name    string       `json:"name"`
	NFrames int          `json:"nframes"`
	MinXY   *scene.Point `json:"minxy,omitempty"`
	MaxXY   *scene.Point `json:"maxxy,omitempty"`
	Frames  []FrameJSON  `json:"frames"`
}

// FrameJSON is one frame in the layout served by /frame/{n}
type FrameJSON struct {
	Frame    int         `json:"frame"`
	Drawings scene.Scene `json:"drawings"`
}

// exportJSON writes the frames to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := strings.NewReplacer(" ", "_", ":", "_", string(filepath.Separator), "_").Replace(b.name)
	timestamp := b.start.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", name, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

// buildExport converts the stored frames. The extent covers every complete shape of every frame.
func (b *Backend) buildExport() Export {
	export := Export{
		Name:    b.name,
		NFrames: len(b.frames),
		Frames:  make([]FrameJSON, 0, len(b.frames)),
	}

	var box scene.BBox
	for _, rec := range b.frames {
		drawings := rec.Drawings
		if drawings == nil {
			drawings = scene.Scene{}
		}
		export.Frames = append(export.Frames, FrameJSON{Frame: rec.Frame, Drawings: drawings})

		for _, s := range rec.Drawings {
			pts, err := s.ExtentPoints()
			if err != nil {
				continue
			}
			for _, p := range pts {
				box = box.Extend(p)
			}
		}
	}

	if lo, hi, ok := box.MinMax(); ok {
		export.MinXY, export.MaxXY = &lo, &hi
	}
	return export
}

func writeJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// Package frameindex gives random access to a frame log: a text file holding one scene
// expression per line.
package frameindex

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dataviewer2d/dataviewer/internal/scenelang"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// SampleStatus is the outcome of sampling frame 0 for the bounding box.
type SampleStatus int

const (
	// SampleNone means the log has no frames.
	SampleNone SampleStatus = iota
	// SampleOK means frame 0 contributed at least one point.
	SampleOK
	// SampleEmpty means frame 0 decoded cleanly but contributed no points.
	SampleEmpty
	// SampleParseFailed means frame 0 could not be fully decoded or measured.
	SampleParseFailed
)

func (s SampleStatus) String() string {
	switch s {
	case SampleNone:
		return "none"
	case SampleOK:
		return "ok"
	case SampleEmpty:
		return "empty"
	case SampleParseFailed:
		return "parse-failed"
	}
	return fmt.Sprintf("SampleStatus(%d)", int(s))
}

// Sample records how the bounding box was seeded.
type Sample struct {
	Status SampleStatus
	// Shapes is the number of shapes merged into the bounding box.
	Shapes int
	// Skipped counts NaN or infinite points left out of the bounding box.
	Skipped int
	Err     error
}

// Index maps frame numbers to byte offsets. It is immutable once built.
type Index struct {
	offsets []int64
	bbox    scene.BBox
	sample  Sample
}

// Option configures Build and NewReader.
type Option func(*options)

type options struct {
	log    *slog.Logger
	strict bool
}

func newOptions(opts []Option) options {
	o := options{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger routes decode diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Strict makes ReadFrame return decode errors next to the partial scene.
func Strict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// Build scans r once, recording the offset of every line until the first blank line or
// EOF. The bounding box is taken from frame 0 only.
func Build(r io.Reader, opts ...Option) (*Index, error) {
	o := newOptions(opts)
	parser := scenelang.NewParser(scenelang.WithLogger(o.log))

	ix := &Index{}
	br := bufio.NewReader(r)
	var off int64
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading frame %d: %w", len(ix.offsets), err)
		}
		text := strings.TrimSpace(line)
		if text == "" {
			break
		}
		ix.offsets = append(ix.offsets, off)
		if len(ix.offsets) == 1 {
			ix.sampleFrame(parser, text, o.log)
			if ix.sample.Err != nil {
				o.log.Debug("frame 0 not usable for bounding box",
					"status", ix.sample.Status, "error", ix.sample.Err)
			}
		}
		off += int64(len(line))
		if err != nil {
			break
		}
	}
	return ix, nil
}

// BuildFile opens path and builds its index.
func BuildFile(path string, opts ...Option) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame log: %w", err)
	}
	defer f.Close()

	ix, err := Build(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", path, err)
	}
	return ix, nil
}

// sampleFrame merges the extent of every shape in text. A decode error merges nothing.
// A shape missing its geometry stops the merge after adding whichever of its points came
// before the missing one. Non-finite points are skipped and counted.
func (ix *Index) sampleFrame(p *scenelang.Parser, text string, log *slog.Logger) {
	shapes, err := p.ParseString(text)
	if err != nil {
		ix.sample = Sample{Status: SampleParseFailed, Err: err}
		return
	}
	var sample Sample
	for _, s := range shapes {
		pts, extentErr := s.ExtentPoints()
		for _, pt := range pts {
			var err error
			if ix.bbox, err = ix.bbox.Include(pt); err != nil {
				log.Warn("skipping point in frame 0", "kind", s.Kind, "error", err)
				sample.Skipped++
			}
		}
		if extentErr != nil {
			sample.Status, sample.Err = SampleParseFailed, extentErr
			ix.sample = sample
			return
		}
		sample.Shapes++
	}
	sample.Status = SampleOK
	if ix.bbox.IsEmpty() {
		sample.Status = SampleEmpty
	}
	ix.sample = sample
}

// Len returns the number of frames.
func (ix *Index) Len() int {
	return len(ix.offsets)
}

// Offset returns the byte offset of frame n.
func (ix *Index) Offset(n int) (int64, bool) {
	if n < 0 || n >= len(ix.offsets) {
		return 0, false
	}
	return ix.offsets[n], true
}

// Offsets returns a copy of the offset table.
func (ix *Index) Offsets() []int64 {
	return append([]int64(nil), ix.offsets...)
}

// BBox returns the bounding box sampled from frame 0.
func (ix *Index) BBox() scene.BBox {
	return ix.bbox
}

// Sample reports how the bounding box was seeded.
func (ix *Index) Sample() Sample {
	if len(ix.offsets) == 0 {
		return Sample{Status: SampleNone}
	}
	return ix.sample
}

// Info is the dataset summary served to viewers.
type Info struct {
	MinXY   scene.Point `json:"minxy"`
	MaxXY   scene.Point `json:"maxxy"`
	NFrames int         `json:"nframes"`

	bounded bool
}

// Empty reports whether there is nothing to summarize: no frames or no bounding box.
func (i Info) Empty() bool {
	return i.NFrames == 0 || !i.bounded
}

// Info summarizes the index.
func (ix *Index) Info() Info {
	lo, hi, ok := ix.bbox.MinMax()
	return Info{MinXY: lo, MaxXY: hi, NFrames: len(ix.offsets), bounded: ok}
}

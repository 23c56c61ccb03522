package frameindex

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/dataviewer2d/dataviewer/internal/scenelang"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// Reader decodes frames on demand. Every call seeks and parses afresh; nothing is cached.
// It is safe for concurrent use.
type Reader struct {
	ix     *Index
	parser *scenelang.Parser
	log    *slog.Logger
	strict bool

	// mu makes seek+read on src one unit.
	mu     sync.Mutex
	src    io.ReadSeeker
	closer io.Closer

	framesRead   metric.Int64Counter
	decodeErrors metric.Int64Counter
}

// NewReader reads frames of ix from src. The caller keeps ownership of src.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewReader(src io.ReadSeeker, ix *Index, opts ...Option) (*Reader, error) {
	if ix == nil {
		return nil, errors.New("frameindex: nil index")
	}
	o := newOptions(opts)
	r := &Reader{
		ix:     ix,
		parser: scenelang.NewParser(scenelang.WithLogger(o.log)),
		log:    o.log,
		strict: o.strict,
		src:    src,
	}

	m := meter()
	var err error
	r.framesRead, err = m.Int64Counter(
		"frames.read",
		metric.WithDescription("Frames read from the log"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames read counter: %w", err)
	}
	r.decodeErrors, err = m.Int64Counter(
		"frames.decode_errors",
		metric.WithDescription("Frames that decoded with errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decode error counter: %w", err)
	}
	return r, nil
}

// Open opens the frame log at path. Close releases the file.
func Open(path string, ix *Index, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame log: %w", err)
	}
	r, err := NewReader(f, ix, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Index returns the index the reader was built with.
func (r *Reader) Index() *Index {
	return r.ix
}

// Len returns the number of frames.
func (r *Reader) Len() int {
	return r.ix.Len()
}

// ReadFrame returns the shapes of frame n. An out-of-range n yields an empty scene and no
// error. Decode problems are logged and the partial scene is returned; with Strict the
// decode error is returned as well. I/O errors are always returned.
func (r *Reader) ReadFrame(n int) (scene.Scene, error) {
	off, ok := r.ix.Offset(n)
	if !ok {
		return scene.Scene{}, nil
	}

	line, err := r.readLine(off)
	if err != nil {
		return scene.Scene{}, fmt.Errorf("reading frame %d: %w", n, err)
	}
	r.framesRead.Add(context.Background(), 1)

	shapes, err := r.parser.ParseString(strings.TrimSpace(line))
	if err != nil {
		r.decodeErrors.Add(context.Background(), 1)
		r.log.Warn("frame decoded with errors", "frame", n, "error", err)
		if r.strict {
			return shapes, fmt.Errorf("decoding frame %d: %w", n, err)
		}
	}
	return shapes, nil
}

func (r *Reader) readLine(off int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.src.Seek(off, io.SeekStart); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(r.src).ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", io.ErrUnexpectedEOF
		}
	}
	return line, nil
}

// Close releases the file opened by Open. It is a no-op for readers built with NewReader.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.closer.Close()
	r.closer = nil
	return err
}

package gormstorage

import (
	"math"
	"testing"
	"time"

	"github.com/dataviewer2d/dataviewer/internal/storage"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestBackend(t *testing.T, deps Dependencies) *Backend {
	t.Helper()
	deps.DB = newTestDB(t)
	if deps.Name == "" {
		deps.Name = "frames.log"
	}
	b := New(deps)
	require.NoError(t, b.Init())
	return b
}

func TestNew_DefaultBatchSize(t *testing.T) {
	b := New(Dependencies{})
	assert.Equal(t, DefaultBatchSize, b.deps.BatchSize)
}

func TestInit_RequiresDB(t *testing.T) {
	assert.Error(t, New(Dependencies{}).Init())
}

func TestInitClose(t *testing.T) {
	b := newTestBackend(t, Dependencies{})
	require.NotNil(t, b.queues)
	assert.NotZero(t, b.DatasetID())
	assert.True(t, b.DB().Migrator().HasTable(&Shape{}))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestAppendFrame_QueuesUntilClose(t *testing.T) {
	b := newTestBackend(t, Dependencies{})

	require.NoError(t, b.AppendFrame(0, scene.Scene{
		scene.Line(scene.Point{X: 0, Y: 0}, scene.Point{X: 3, Y: 4}).WithColor("red"),
		scene.Circle(scene.Point{X: 1, Y: 1}, 2),
	}))
	assert.Equal(t, 1, b.queues.Frames.Len())
	assert.Equal(t, 2, b.queues.Shapes.Len())

	n, err := CountFrames(b.DB(), b.DatasetID())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, b.Close())
	assert.True(t, b.queues.Shapes.Empty())

	n, err = CountFrames(b.DB(), b.DatasetID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAppendFrame_FlushesWhenFull(t *testing.T) {
	b := newTestBackend(t, Dependencies{BatchSize: 2})
	defer b.Close()

	require.NoError(t, b.AppendFrame(0, scene.Scene{scene.Circle(scene.Point{}, 1)}))
	assert.Equal(t, 1, b.queues.Shapes.Len())

	require.NoError(t, b.AppendFrame(1, scene.Scene{scene.Circle(scene.Point{}, 1)}))
	assert.True(t, b.queues.Shapes.Empty())
	assert.True(t, b.queues.Frames.Empty())

	n, err := CountFrames(b.DB(), b.DatasetID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAppendFrame_Errors(t *testing.T) {
	assert.Error(t, New(Dependencies{}).AppendFrame(0, nil), "not initialized")

	b := newTestBackend(t, Dependencies{})
	require.NoError(t, b.AppendFrame(4, nil))
	assert.ErrorIs(t, b.AppendFrame(2, nil), storage.ErrFrameOrder)

	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.AppendFrame(5, nil), storage.ErrClosed)
}

func TestShapesForFrame_RoundTrip(t *testing.T) {
	b := newTestBackend(t, Dependencies{})

	frame := scene.Scene{
		scene.Line(scene.Point{X: 0, Y: 0}, scene.Point{X: 3, Y: 4}).WithWidth(2).WithColor("red"),
		scene.CLine(scene.Point{X: -1, Y: 0}, scene.Point{X: 1, Y: 0}),
		scene.Circle(scene.Point{X: 1, Y: 1}, 2).WithComment("c").WithLayer("top"),
		scene.Polygon(scene.Point{X: 0, Y: 0}, scene.Point{X: 4, Y: 0}, scene.Point{X: 4, Y: 3}),
	}
	require.NoError(t, b.AppendFrame(0, scene.Scene{}))
	require.NoError(t, b.AppendFrame(1, frame))
	require.NoError(t, b.Close())

	got, err := ShapesForFrame(b.DB(), b.DatasetID(), 1)
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	got, err = ShapesForFrame(b.DB(), b.DatasetID(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ShapesForFrame(b.DB(), b.DatasetID(), 99)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestShapeColumns(t *testing.T) {
	b := newTestBackend(t, Dependencies{})
	require.NoError(t, b.AppendFrame(0, scene.Scene{
		scene.Line(scene.Point{X: 0, Y: 0}, scene.Point{X: 3, Y: 4}).WithColor("red"),
		scene.Circle(scene.Point{X: 1, Y: 1}, 2),
		{Kind: scene.KindLine},
		scene.Polygon(scene.Point{X: 0, Y: 0}, scene.Point{X: 2, Y: 2}, scene.Point{X: 2, Y: 0}, scene.Point{X: 0, Y: 2}),
	}))
	require.NoError(t, b.Close())

	var rows []Shape
	require.NoError(t, b.DB().Order("seq").Find(&rows).Error)
	require.Len(t, rows, 4)

	assert.Equal(t, "line", rows[0].Kind)
	assert.Equal(t, "LINESTRING(0 0,3 4)", rows[0].Geom)
	require.NotNil(t, rows[0].Color)
	assert.Equal(t, "red", *rows[0].Color)
	assert.Nil(t, rows[0].Radius)

	assert.Equal(t, "circle", rows[1].Kind)
	assert.Equal(t, "POINT(1 1)", rows[1].Geom)
	require.NotNil(t, rows[1].Radius)
	assert.Equal(t, 2.0, *rows[1].Radius)

	assert.Empty(t, rows[2].Geom, "incomplete shapes have no geometry")
	assert.Equal(t, "POLYGON((0 0,2 2,2 0,0 2,0 0))", rows[3].Geom)
}

func TestToShape_NonFinite(t *testing.T) {
	_, err := toShape(1, 0, 0, scene.Circle(scene.Point{X: math.NaN(), Y: 0}, 1))
	assert.Error(t, err)
}

func TestClose_UpdatesDataset(t *testing.T) {
	b := newTestBackend(t, Dependencies{Name: "run.log"})
	require.NoError(t, b.AppendFrame(0, scene.Scene{scene.Circle(scene.Point{X: 0, Y: 0}, 2)}))
	require.NoError(t, b.AppendFrame(1, scene.Scene{
		scene.Line(scene.Point{X: 5, Y: 5}, scene.Point{X: 6, Y: 7}),
		{Kind: scene.KindCircle},
	}))
	require.NoError(t, b.Close())

	assert.Equal(t, storage.Summary{Frames: 2, Shapes: 3}, b.Summary())

	sets, err := Datasets(b.DB())
	require.NoError(t, err)
	require.Len(t, sets, 1)

	ds := sets[0]
	assert.Equal(t, "run.log", ds.Name)
	assert.Equal(t, 2, ds.NFrames)
	assert.Equal(t, 3, ds.NShapes)
	require.NotNil(t, ds.MinX)
	assert.Equal(t, -2.0, *ds.MinX)
	assert.Equal(t, -2.0, *ds.MinY)
	assert.Equal(t, 6.0, *ds.MaxX)
	assert.Equal(t, 7.0, *ds.MaxY)
}

func TestClose_EmptyDatasetHasNoExtent(t *testing.T) {
	b := newTestBackend(t, Dependencies{})
	require.NoError(t, b.Close())

	sets, err := Datasets(b.DB())
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Nil(t, sets[0].MinX)
}

func TestFlush_FailureRequeues(t *testing.T) {
	b := newTestBackend(t, Dependencies{})
	require.NoError(t, b.AppendFrame(0, scene.Scene{scene.Circle(scene.Point{}, 1)}))
	require.NoError(t, b.DB().Migrator().DropTable(&Shape{}))

	err := b.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing shapes")
	assert.Equal(t, 1, b.queues.Shapes.Len())
	assert.True(t, b.queues.Frames.Empty())
}

func TestWriterLoop(t *testing.T) {
	b := newTestBackend(t, Dependencies{FlushInterval: 10 * time.Millisecond})
	defer b.Close()

	require.NoError(t, b.AppendFrame(0, scene.Scene{scene.Circle(scene.Point{}, 1)}))

	assert.Eventually(t, func() bool {
		n, err := CountFrames(b.DB(), b.DatasetID())
		return err == nil && n == 1
	}, time.Second, 10*time.Millisecond)
}

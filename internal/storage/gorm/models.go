package gormstorage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dataviewer2d/dataviewer/internal/geo"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Models lists every table the backend migrates.
var Models = []interface{}{
	&Dataset{},
	&Frame{},
	&Shape{},
}

// Dataset is one exported frame log.
type Dataset struct {
	gorm.Model
	Name    string `json:"name" gorm:"size:255"`
	NFrames int    `json:"nframes"`
	NShapes int    `json:"nshapes"`
	// Extent of every complete shape, null while nothing has been stored.
	MinX *float64 `json:"minX"`
	MinY *float64 `json:"minY"`
	MaxX *float64 `json:"maxX"`
	MaxY *float64 `json:"maxY"`
}

func (*Dataset) TableName() string {
	return "datasets"
}

// Frame is one line of the frame log.
type Frame struct {
	ID         uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	DatasetID  uint    `json:"datasetId" gorm:"uniqueIndex:idx_frame_dataset_frame"`
	Dataset    Dataset `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DatasetID;"`
	FrameNum   int     `json:"frame" gorm:"uniqueIndex:idx_frame_dataset_frame"`
	ShapeCount int     `json:"shapeCount"`
}

func (*Frame) TableName() string {
	return "frames"
}

// Shape is one drawing of a frame. Geom holds the WKT of its geometry, Drawing the full
// shape as the viewer's JSON.
type Shape struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	DatasetID uint           `json:"datasetId" gorm:"index:idx_shape_dataset_frame"`
	Dataset   Dataset        `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DatasetID;"`
	FrameNum  int            `json:"frame" gorm:"index:idx_shape_dataset_frame"`
	Seq       int            `json:"seq"`
	Kind      string         `json:"kind" gorm:"size:16"`
	Geom      string         `json:"geom"`
	Radius    *float64       `json:"radius"`
	Width     *float64       `json:"width"`
	Color     *string        `json:"color" gorm:"size:64"`
	Comment   *string        `json:"comment"`
	Layer     *string        `json:"layer" gorm:"size:128"`
	Drawing   datatypes.JSON `json:"drawing"`
}

func (*Shape) TableName() string {
	return "shapes"
}

// toShape converts a scene shape into its row. Shapes missing geometry keep an empty Geom.
func toShape(datasetID uint, frame, seq int, s scene.Shape) (Shape, error) {
	drawing, err := json.Marshal(s)
	if err != nil {
		return Shape{}, fmt.Errorf("encoding %s: %w", s.Kind, err)
	}
	wkt, err := geo.WKT(s)
	if err != nil && !errors.Is(err, scene.ErrIncompleteShape) {
		return Shape{}, fmt.Errorf("geometry of %s: %w", s.Kind, err)
	}

	row := Shape{
		DatasetID: datasetID,
		FrameNum:  frame,
		Seq:       seq,
		Kind:      s.Kind.String(),
		Geom:      wkt,
		Width:     s.Width,
		Color:     s.Color,
		Comment:   s.Comment,
		Layer:     s.Layer,
		Drawing:   datatypes.JSON(drawing),
	}
	if s.Kind == scene.KindCircle {
		row.Radius = s.Radius
	}
	return row, nil
}

// Scene decodes the stored drawing back into a scene shape.
func (s Shape) Scene() (scene.Shape, error) {
	var out scene.Shape
	if err := json.Unmarshal(s.Drawing, &out); err != nil {
		return scene.Shape{}, fmt.Errorf("decoding shape %d: %w", s.ID, err)
	}
	return out, nil
}

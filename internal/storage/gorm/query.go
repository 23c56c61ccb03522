package gormstorage

import (
	"fmt"

	"github.com/dataviewer2d/dataviewer/pkg/scene"
	"gorm.io/gorm"
)

// Datasets lists the stored datasets, oldest first.
func Datasets(db *gorm.DB) ([]Dataset, error) {
	var out []Dataset
	if err := db.Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}
	return out, nil
}

// CountFrames returns how many frames a dataset holds.
func CountFrames(db *gorm.DB, datasetID uint) (int64, error) {
	var n int64
	if err := db.Model(&Frame{}).Where("dataset_id = ?", datasetID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting frames: %w", err)
	}
	return n, nil
}

// ShapesForFrame returns the drawings of one frame in paint order. A frame that was never
// stored yields an empty scene.
func ShapesForFrame(db *gorm.DB, datasetID uint, frame int) (scene.Scene, error) {
	var rows []Shape
	err := db.Where("dataset_id = ? AND frame_num = ?", datasetID, frame).
		Order("seq").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading frame %d: %w", frame, err)
	}

	out := make(scene.Scene, 0, len(rows))
	for _, row := range rows {
		s, err := row.Scene()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

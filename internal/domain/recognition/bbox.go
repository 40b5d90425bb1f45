package recognition

import "fmt"

// BBox is an axis-aligned box in image pixel coordinates, (X1,Y1) the top-left
// corner and (X2,Y2) the bottom-right.
type BBox struct {
	X1 float64 `gorm:"column:x1" json:"x1"`
	Y1 float64 `gorm:"column:y1" json:"y1"`
	X2 float64 `gorm:"column:x2" json:"x2"`
	Y2 float64 `gorm:"column:y2" json:"y2"`
}

// Validate rejects boxes whose second corner does not strictly exceed the
// first on both axes.
func (b BBox) Validate() error {
	if !(b.X2 > b.X1) {
		return fmt.Errorf("bbox x2 (%v) must be greater than x1 (%v)", b.X2, b.X1)
	}
	if !(b.Y2 > b.Y1) {
		return fmt.Errorf("bbox y2 (%v) must be greater than y1 (%v)", b.Y2, b.Y1)
	}
	return nil
}

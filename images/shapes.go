// Package images - Image processing utilities
package images

// Rect is a lightweight bounding box in pixel space.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() int {
	return r.X2 - r.X1
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() int {
	return r.Y2 - r.Y1
}

// Area returns the rectangle area, or 0 for degenerate rectangles.
func (r Rect) Area() int {
	if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
		return 0
	}
	return (r.X2 - r.X1) * (r.Y2 - r.Y1)
}

// Union returns the smallest rectangle covering both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X1: min(r.X1, o.X1),
		Y1: min(r.Y1, o.Y1),
		X2: max(r.X2, o.X2),
		Y2: max(r.Y2, o.Y2),
	}
}

// In reports whether r lies entirely inside a width x height image.
func (r Rect) In(width, height int) bool {
	return r.X1 >= 0 && r.Y1 >= 0 && r.X2 <= width && r.Y2 <= height && r.X1 <= r.X2 && r.Y1 <= r.Y2
}

// CalculateIoU measures how much two rectangles overlap, as the area of their
// intersection divided by the area of their union.
//
//	IoU = Area of Intersection / Area of Union
//
//	- 1.0 means the rectangles are identical.
//	- 0.0 means they do not overlap at all (touching edges included).
//
// The intersection corners are the maximum of the top-left corners and the minimum of the
// bottom-right corners; a non-positive width or height means there is no overlap. The union
// follows inclusion-exclusion: Area(A) + Area(B) - Area(A ∩ B).
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0.
//
// Example Usage:
// ```go
//
//	rect1 := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	rect2 := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iouScore := CalculateIoU(rect1, rect2) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return float32(interArea) / float32(unionArea)
}

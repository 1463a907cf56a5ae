package structure

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point is an integer lattice position, before scaling to Ångström.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Vec converts p to a gonum vector.
func (p Point) Vec() r3.Vec {
	return r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Pair is an unordered residue index pair, stored with I < J.
type Pair struct {
	I int `json:"i"`
	J int `json:"j"`
}

// OverlapDistance is the distance below which two residues collide.
const OverlapDistance = 0.5

// FindOverlaps returns every pair (i, j) with j >= i+2 closer than
// OverlapDistance. Each pair is reported once, as (i, j) with i < j.
func FindOverlaps(points []r3.Vec) []Pair {
	overlaps := []Pair{}
	for i := 0; i < len(points); i++ {
		for j := i + 2; j < len(points); j++ {
			if r3.Norm(r3.Sub(points[i], points[j])) < OverlapDistance {
				overlaps = append(overlaps, Pair{I: i, J: j})
			}
		}
	}
	return overlaps
}

// Centroid returns the mean of points.
func Centroid(points []r3.Vec) r3.Vec {
	var c r3.Vec
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c = r3.Add(c, p)
	}
	return r3.Scale(1/float64(len(points)), c)
}

// RadiusOfGyration is the RMS distance of points from their centroid.
func RadiusOfGyration(points []r3.Vec) float64 {
	if len(points) == 0 {
		return 0
	}
	c := Centroid(points)
	sum := 0.0
	for _, p := range points {
		sum += r3.Norm2(r3.Sub(p, c))
	}
	return math.Sqrt(sum / float64(len(points)))
}

// Vectors converts lattice points to gonum vectors.
func Vectors(points []Point) []r3.Vec {
	out := make([]r3.Vec, len(points))
	for i, p := range points {
		out[i] = p.Vec()
	}
	return out
}

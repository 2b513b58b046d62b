package physics

import "math"

// Vec3 is a position, extent or direction in world space.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }
func (v Vec3) Length() float64      { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }
func (v Vec3) Min(o Vec3) Vec3 {
	return Vec3{math.Min(v.X, o.X), math.Min(v.Y, o.Y), math.Min(v.Z, o.Z)}
}
func (v Vec3) Max(o Vec3) Vec3 {
	return Vec3{math.Max(v.X, o.X), math.Max(v.Y, o.Y), math.Max(v.Z, o.Z)}
}
func (v Vec3) Distance(o Vec3) float64 { return v.Sub(o).Length() }

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec3
}

// Size returns the extent of the box.
func (b AABB) Size() Vec3 { return b.Max.Sub(b.Min) }

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 { return b.Min.Add(b.Max).Scale(0.5) }

// BoundsOf returns the smallest box containing every point, or the zero box.
func BoundsOf(points []Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	b := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

package model

import "fmt"

type Vec3i struct {
	X int
	Y int
	Z int
}

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3i) String() string { return fmt.Sprintf("%d,%d,%d", v.X, v.Y, v.Z) }

// Less orders positions lexicographically by X, then Y, then Z.
func (v Vec3i) Less(o Vec3i) bool {
	if v.X != o.X {
		return v.X < o.X
	}
	if v.Y != o.Y {
		return v.Y < o.Y
	}
	return v.Z < o.Z
}

// Neighbors6 are the face-adjacent offsets in a fixed visiting order.
var Neighbors6 = [6]Vec3i{
	{X: -1}, {X: 1},
	{Y: -1}, {Y: 1},
	{Z: -1}, {Z: 1},
}

// Package camera provides a 3D orbit camera for viewport control.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// worldUp is the Y-up axis used by the renderer.
var worldUp = r3.Vec{Y: 1}

// Camera orbits a target point at a given distance.
// Angles are in radians. Yaw is measured around +Y from +Z; pitch is the
// elevation above the XZ plane.
type Camera struct {
	Target   r3.Vec
	Yaw      float64
	Pitch    float64
	Distance float64

	// Vertical field of view
	FovY float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float64

	// Distance constraints
	MinDistance, MaxDistance float64

	// Near clipping distance used for culling
	Near float64

	home pose
}

// pose is the orientation restored by Reset.
type pose struct {
	target           r3.Vec
	yaw, pitch, dist float64
}

const maxPitch = math.Pi/2 - 0.01

// New creates a camera looking at the origin from far enough away to see a
// cube of half-size extent.
func New(viewportW, viewportH, extent float64) *Camera {
	c := &Camera{
		Yaw:       math.Pi / 6,
		Pitch:     math.Pi / 8,
		FovY:      math.Pi / 4,
		ViewportW: viewportW,
		ViewportH: viewportH,
		Near:      0.1,
	}
	c.MinDistance = max(extent*0.02, 0.5)
	c.MaxDistance = max(extent*20, 10)
	c.Distance = clamp(c.fitDistance(extent*math.Sqrt(3)), c.MinDistance, c.MaxDistance)
	c.home = c.currentPose()
	return c
}

func (c *Camera) currentPose() pose {
	return pose{target: c.Target, yaw: c.Yaw, pitch: c.Pitch, dist: c.Distance}
}

// Position returns the eye position in world coordinates.
func (c *Camera) Position() r3.Vec {
	cp := math.Cos(c.Pitch)
	offset := r3.Vec{
		X: cp * math.Sin(c.Yaw),
		Y: math.Sin(c.Pitch),
		Z: cp * math.Cos(c.Yaw),
	}
	return r3.Add(c.Target, r3.Scale(c.Distance, offset))
}

// Basis returns the camera's forward, right and up unit vectors.
func (c *Camera) Basis() (forward, right, up r3.Vec) {
	forward = r3.Unit(r3.Sub(c.Target, c.Position()))
	right = r3.Unit(r3.Cross(forward, worldUp))
	up = r3.Cross(right, forward)
	return forward, right, up
}

// focal returns the projection scale in pixels per unit at depth 1.
func (c *Camera) focal() float64 {
	return (c.ViewportH / 2) / math.Tan(c.FovY/2)
}

// WorldToScreen projects p to screen coordinates. ok is false for points at
// or behind the near plane.
func (c *Camera) WorldToScreen(p r3.Vec) (sx, sy float64, ok bool) {
	forward, right, up := c.Basis()
	d := r3.Sub(p, c.Position())
	z := r3.Dot(d, forward)
	if z <= c.Near {
		return 0, 0, false
	}
	f := c.focal() / z
	sx = c.ViewportW/2 + r3.Dot(d, right)*f
	sy = c.ViewportH/2 - r3.Dot(d, up)*f
	return sx, sy, true
}

// ProjectedRadius returns the on-screen radius in pixels of a sphere at p,
// or 0 if it is at or behind the near plane.
func (c *Camera) ProjectedRadius(p r3.Vec, radius float64) float64 {
	forward, _, _ := c.Basis()
	z := r3.Dot(r3.Sub(p, c.Position()), forward)
	if z <= c.Near {
		return 0
	}
	return radius * c.focal() / z
}

// IsVisible returns true if a sphere at p with given radius could be visible
// on screen (conservative check for culling).
func (c *Camera) IsVisible(p r3.Vec, radius float64) bool {
	forward, right, up := c.Basis()
	d := r3.Sub(p, c.Position())
	z := r3.Dot(d, forward)
	if z+radius <= c.Near {
		return false
	}

	// Half-extents of the frustum slice at depth z, plus margin for radius
	tanY := math.Tan(c.FovY / 2)
	halfH := z*tanY + radius
	halfW := z*tanY*c.ViewportW/c.ViewportH + radius
	return math.Abs(r3.Dot(d, right)) <= halfW && math.Abs(r3.Dot(d, up)) <= halfH
}

// Orbit rotates around the target. Pitch stays short of the poles.
func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.Yaw = math.Mod(c.Yaw+dYaw, 2*math.Pi)
	c.Pitch = clamp(c.Pitch+dPitch, -maxPitch, maxPitch)
}

// Pan moves the target by the given delta in screen pixels so the scene
// follows the cursor at the target's depth.
func (c *Camera) Pan(dx, dy float64) {
	_, right, up := c.Basis()
	perPixel := c.Distance / c.focal()
	c.Target = r3.Add(c.Target, r3.Scale(-dx*perPixel, right))
	c.Target = r3.Add(c.Target, r3.Scale(dy*perPixel, up))
}

// SetDistance sets the orbit distance, clamped to min/max.
func (c *Camera) SetDistance(d float64) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// ZoomBy magnifies by factor; factor > 1 moves closer.
func (c *Camera) ZoomBy(factor float64) {
	if factor <= 0 {
		return
	}
	c.SetDistance(c.Distance / factor)
}

// Frame centres the target on center and backs off until a sphere of the
// given radius fits the view. The result becomes the Reset pose.
func (c *Camera) Frame(center r3.Vec, radius float64) {
	c.Target = center
	c.SetDistance(c.fitDistance(radius))
	c.home = c.currentPose()
}

func (c *Camera) fitDistance(radius float64) float64 {
	half := c.FovY / 2
	if c.ViewportW > 0 && c.ViewportW < c.ViewportH {
		half = math.Atan(math.Tan(half) * c.ViewportW / c.ViewportH)
	}
	return radius/math.Sin(half) + c.Near
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float64) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Reset returns the camera to the pose set by New or the last Frame.
func (c *Camera) Reset() {
	c.Target = c.home.target
	c.Yaw = c.home.yaw
	c.Pitch = c.home.pitch
	c.Distance = c.home.dist
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

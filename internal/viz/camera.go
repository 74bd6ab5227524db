package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is an orthographic view of a z-up scene. Yaw turns the scene
// about z, Pitch tilts it toward the viewer.
type Camera struct {
	Yaw, Pitch float64
	Zoom       float64
	Center     mgl64.Vec3
	// Extent is the world-space span that fills the shorter canvas side
	// at Zoom 1.
	Extent float64
}

func NewCamera() *Camera {
	return &Camera{Yaw: math.Pi / 6, Pitch: 0.3, Zoom: 1, Extent: 1}
}

func (c *Camera) Rotate(dyaw, dpitch float64) {
	c.Yaw += dyaw
	c.Pitch = mgl64.Clamp(c.Pitch+dpitch, -math.Pi/2, math.Pi/2)
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Fit centers the camera on points and sizes Extent to their bounding box
// with some margin.
func (c *Camera) Fit(points []mgl64.Vec3) {
	if len(points) == 0 {
		return
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], p[k])
			hi[k] = math.Max(hi[k], p[k])
		}
	}
	c.Center = lo.Add(hi).Mul(0.5)
	c.Extent = math.Max(hi.Sub(lo).Len()*1.1, 1e-3)
}

func (c *Camera) view() mgl64.Mat3 {
	return mgl64.Rotate3DX(c.Pitch).Mul3(mgl64.Rotate3DZ(c.Yaw))
}

// Project maps p to dot coordinates on a w x h dot canvas. Screen x follows
// the rotated x axis, screen up follows the rotated z axis. depth grows
// away from the viewer.
func (c *Camera) Project(p mgl64.Vec3, w, h int) (x, y int, depth float64) {
	r := c.view().Mul3x1(p.Sub(c.Center))
	scale := float64(min(w, h)) * c.Zoom / c.Extent
	x = int(math.Round(r[0]*scale)) + w/2
	y = h/2 - int(math.Round(r[2]*scale))
	return x, y, r[1]
}

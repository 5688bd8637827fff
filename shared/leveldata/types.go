// Package leveldata parses TMX collision maps for the client physics world.
// Maps are top-down: TMX x runs along world X and TMX y along world Z.
// It has no dependencies on ebitengine, donburi, or resolv.
package leveldata

// CollisionData holds all collision-relevant data parsed from a TMX level file.
// Coordinates are in map pixels.
type CollisionData struct {
	SolidRects  []SolidRect
	SpawnPoints []SpawnPoint
	MapWidth    int
	MapHeight   int
}

// SolidRect is the footprint of an obstacle. Obstacles block horizontal
// movement at every height.
type SolidRect struct {
	X, Y, W, H float64
}

// SpawnPoint represents a player or vehicle spawn location.
type SpawnPoint struct {
	X, Y    float64
	Index   int
	Vehicle bool
}

// World converts a pixel position into world X and Z.
func World(x, y, pixelsPerUnit float64) (wx, wz float64) {
	if pixelsPerUnit <= 0 {
		return x, y
	}
	return x / pixelsPerUnit, y / pixelsPerUnit
}

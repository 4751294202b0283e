// Region placement using layered simplex noise. Given a world seed, the same
// set of regions is produced every time: center coordinates, terrain type, and
// a map color all derive deterministically from the noise fields.
package world

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds region generation parameters.
type GenConfig struct {
	Count    int     // Number of regions to place.
	Radius   float64 // World radius in abstract map units.
	SeaLevel float64 // Elevation threshold below which terrain reads as coast.
	Seed     int64
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig(seed int64) GenConfig {
	return GenConfig{
		Count:    12,
		Radius:   100,
		SeaLevel: 0.30,
		Seed:     seed,
	}
}

var regionNames = []string{
	"Ironhold", "Veldmark", "Khareth", "Sunward Reach", "Greywater",
	"Thornfell", "Duskplain", "Emberwaste", "Northgate", "Silverstrand",
	"Redbarrow", "Mirefen", "Oakenshore", "Stormcrag", "Goldfield",
	"Ashvale", "Wintermoor", "Brackmarsh", "Highspire", "Lowmarch",
}

var regionColors = []string{
	"#7cb342", "#8d6e63", "#fdd835", "#29b6f6", "#ef5350",
	"#ab47bc", "#26a69a", "#ff7043", "#5c6bc0", "#9ccc65",
}

// GenerateRegions places cfg.Count regions on a golden-angle spiral and
// derives terrain for each from elevation and rainfall noise.
func GenerateRegions(worldID string, cfg GenConfig) []*Region {
	elevNoise := opensimplex.NewNormalized(cfg.Seed)
	rainNoise := opensimplex.NewNormalized(cfg.Seed + 1)

	regions := make([]*Region, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		// Golden-angle spiral gives an even spread without clustering.
		angle := float64(i) * 2.39996322972865332
		dist := cfg.Radius * math.Sqrt(float64(i+1)/float64(cfg.Count))
		x := dist * math.Cos(angle)
		y := dist * math.Sin(angle)

		elev := octaveNoise(elevNoise, x, y, 4, 0.02, 0.5)
		rain := octaveNoise(rainNoise, x, y, 3, 0.015, 0.5)

		name := regionNames[i%len(regionNames)]
		if i >= len(regionNames) {
			name = fmt.Sprintf("%s %d", name, i/len(regionNames)+1)
		}

		regions = append(regions, &Region{
			ID:      uuid.NewString(),
			WorldID: worldID,
			Name:    name,
			Type:    deriveTerrain(elev, rain, cfg),
			CenterX: math.Round(x*100) / 100,
			CenterY: math.Round(y*100) / 100,
			Color:   regionColors[i%len(regionColors)],
		})
	}
	return regions
}

// deriveTerrain determines region terrain from environmental parameters.
func deriveTerrain(elev, rain float64, cfg GenConfig) string {
	switch {
	case elev < cfg.SeaLevel:
		return RegionCoast
	case elev > 0.72:
		return RegionMountains
	case rain < 0.30:
		return RegionDesert
	default:
		return RegionPlains
	}
}

// octaveNoise samples multi-octave noise for natural-looking variation.
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, freq, persistence float64) float64 {
	var total, amplitude, maxValue float64
	amplitude = 1.0
	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*freq, y*freq) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		freq *= 2
	}
	return total / maxValue
}

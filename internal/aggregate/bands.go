package aggregate

import (
	"fmt"
	"strings"
	"time"
)

// Bands is an ordered set of latency ranges. Bounds are inclusive upper edges;
// the last band is open-ended, so there is always one more band than bound.
type Bands struct {
	Name   string
	Bounds []time.Duration
	Labels []string
}

var (
	// ThreeBands splits at 10s and 30s.
	ThreeBands = Bands{
		Name:   "three",
		Bounds: []time.Duration{10 * time.Second, 30 * time.Second},
		Labels: []string{"0-10s", "10-30s", "30s+"},
	}
	// FourBands adds a 60s edge to ThreeBands.
	FourBands = Bands{
		Name:   "four",
		Bounds: []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second},
		Labels: []string{"0-10s", "10-30s", "30-60s", "60s+"},
	}
)

// ParseBands resolves a band layout by name ("three" or "four").
func ParseBands(name string) (Bands, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "three", "3":
		return ThreeBands, nil
	case "four", "4":
		return FourBands, nil
	default:
		return Bands{}, fmt.Errorf("unknown band layout %q", name)
	}
}

// Len returns the number of bands.
func (b Bands) Len() int {
	return len(b.Bounds) + 1
}

// Index returns the band a latency falls in.
func (b Bands) Index(latency time.Duration) int {
	for i, bound := range b.Bounds {
		if latency <= bound {
			return i
		}
	}
	return len(b.Bounds)
}

// Label returns the display label of band i.
func (b Bands) Label(i int) string {
	if i >= 0 && i < len(b.Labels) {
		return b.Labels[i]
	}
	return fmt.Sprintf("band%d", i)
}

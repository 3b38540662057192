package domain

// DropletLevel is the coarse classification of a percentage reading shown
// next to water level and soil moisture.
type DropletLevel int

const (
	DropletsEmpty DropletLevel = iota
	DropletsOne
	DropletsTwo
	DropletsThree
	DropletsFour
	DropletsFull
)

const (
	drop      = "💧"
	emptyDrop = "◌"
)

// Droplets classifies p after clamping it into [0,100]. Each bucket includes
// its upper bound: 5 is empty, 6..20 one drop, 21..40 two and so on.
func Droplets(p int) DropletLevel {
	p = ClampPercent(p)
	switch {
	case p <= 5:
		return DropletsEmpty
	case p <= 20:
		return DropletsOne
	case p <= 40:
		return DropletsTwo
	case p <= 60:
		return DropletsThree
	case p <= 80:
		return DropletsFour
	default:
		return DropletsFull
	}
}

func (l DropletLevel) String() string {
	switch l {
	case DropletsEmpty:
		return "◌ ◌ ◌ ◌ ◌ (Empty)"
	case DropletsFull:
		return drop + drop + drop + drop + drop + " (Full)"
	}
	s := ""
	for i := 0; i < int(l); i++ {
		s += drop
	}
	for i := int(l); i < 5; i++ {
		s += " " + emptyDrop
	}
	return s
}

// DropletIndicator renders an optional reading; a missing reading has no
// indicator.
func DropletIndicator(p *int) string {
	if p == nil {
		return ""
	}
	return Droplets(*p).String()
}

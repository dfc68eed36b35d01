package model

// Position is the crossover state of a bar. Only long exposure is representable.
type Position int

const (
	Flat Position = 0
	Long Position = 1
)

func (p Position) String() string {
	if p == Long {
		return "LONG"
	}
	return "FLAT"
}

// Signal is the output of the crossover generator, aligned 1:1 with the price series.
// ShortMA and LongMA hold NaN where the window has not filled yet.
type Signal struct {
	ShortWindow int
	LongWindow  int
	ShortMA     []float64
	LongMA      []float64
	Positions   []Position
	// Transitions[t] = Positions[t] - Positions[t-1]; Transitions[0] is 0.
	Transitions []int
}

// Len returns the number of bars covered.
func (s *Signal) Len() int { return len(s.Positions) }

// CountTransitions returns the number of +1 and -1 transitions.
func (s *Signal) CountTransitions() (in, out int) {
	for _, d := range s.Transitions {
		switch {
		case d > 0:
			in++
		case d < 0:
			out++
		}
	}
	return in, out
}

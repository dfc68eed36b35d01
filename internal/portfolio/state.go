package portfolio

// Phase is the simulator's holding state.
type Phase int

const (
	Flat Phase = iota
	Invested
)

func (p Phase) String() string {
	if p == Invested {
		return "INVESTED"
	}
	return "FLAT"
}

// State tracks cash and shares between bars. Outside of a transition either
// all capital is cash or all of it is shares.
type State struct {
	Phase  Phase
	Cash   float64
	Shares float64
}

// NewState starts fully in cash.
func NewState(capital float64) State {
	return State{Phase: Flat, Cash: capital}
}

// Value marks the state to market at price.
func (s State) Value(price float64) float64 {
	return s.Cash + s.Shares*price
}

// enter converts all cash to shares at price. No-op unless flat with cash.
func (s *State) enter(price float64) bool {
	if s.Phase != Flat || s.Cash <= 0 {
		return false
	}
	s.Shares = s.Cash / price
	s.Cash = 0
	s.Phase = Invested
	return true
}

// exit converts all shares to cash at price. No-op unless invested.
func (s *State) exit(price float64) bool {
	if s.Phase != Invested {
		return false
	}
	s.Cash = s.Shares * price
	s.Shares = 0
	s.Phase = Flat
	return true
}

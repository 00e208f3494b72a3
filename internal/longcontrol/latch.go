package longcontrol

// TurnDecelLatch remembers whether the previous cycle was decelerating for a turn
type TurnDecelLatch struct {
	active bool
}

func (l *TurnDecelLatch) Active() bool {
	return l.active
}

// Rising returns true if the turn deceleration starts with this cycle
func (l *TurnDecelLatch) Rising(decelForTurn bool) bool {
	return decelForTurn && !l.active
}

// Falling returns true if the turn deceleration ends with this cycle
func (l *TurnDecelLatch) Falling(decelForTurn bool) bool {
	return !decelForTurn && l.active
}

func (l *TurnDecelLatch) Set() {
	l.active = true
}

// Clear releases the latch and returns whether it was set
func (l *TurnDecelLatch) Clear() bool {
	wasActive := l.active
	l.active = false
	return wasActive
}

package gate

// ClockTicks builds a free-running clock timeline of half-period ticks.
//
// Tick 2i starts cycle i with the clock high; tick 2i+1 is the falling half.
// Each cycle has one sample period, so a falling edge occurs once per sample.
func ClockTicks(clock string, rate float64, cycles int) []Tick {
	half := 0.5 / rate
	ticks := make([]Tick, 2*cycles)
	for i := range ticks {
		ticks[i] = Tick{
			Time:   float64(i) * half,
			Levels: map[string]bool{clock: i%2 == 0},
		}
	}
	return ticks
}

package backtest

// Detector looks for a pump (SHORT runs) or a dump (LONG runs) over the
// window of bars right before the decision bar.
type Detector struct {
	window    int
	threshold float64
	direction Direction
}

func NewDetector(config Config) Detector {
	return Detector{
		window:    config.DetectionPeriod,
		threshold: config.PumpDumpThreshold,
		direction: config.Direction,
	}
}

// Change returns the percent move from bars[i-window] to bars[i-1].
// ok is false when the window does not fit or starts at a zero price.
func (d Detector) Change(bars []Bar, i int) (change float64, ok bool) {
	if d.window < 1 || i < d.window || i > len(bars) {
		return 0, false
	}
	start := bars[i-d.window].Close
	end := bars[i-1].Close
	if start == 0 {
		return 0, false
	}
	return (end - start) / start * 100, true
}

// Triggered reports whether bar i should open a position.
func (d Detector) Triggered(bars []Bar, i int) bool {
	change, ok := d.Change(bars, i)
	if !ok {
		return false
	}
	if d.direction == DirectionLong {
		return change <= -d.threshold
	}
	return change >= d.threshold
}

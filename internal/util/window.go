package util

import "github.com/asecurityteam/rolling"

func CreateRollingWindow(size int) *rolling.PointPolicy {
	return rolling.NewPointPolicy(rolling.NewWindow(size))
}

// GetWindowMax returns the max value in the window
func GetWindowMax(window *rolling.PointPolicy) float64 {
	return window.Reduce(rolling.Max)
}

// GetFilledWindowAvg returns the average of the values in a window that
// received the given number of appends, unwritten slots are ignored
func GetFilledWindowAvg(window *rolling.PointPolicy, appended uint64) float64 {
	n := min(float64(appended), window.Reduce(rolling.Count))
	if n <= 0 {
		return 0
	}
	return window.Reduce(rolling.Sum) / n
}

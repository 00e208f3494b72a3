package control_loop

import "github.com/longctl/longctl/internal/util"

// Limits bounds a signed control output, Neg <= 0 <= Pos
type Limits struct {
	Pos float64 `json:"pos"`
	Neg float64 `json:"neg"`
}

func (l Limits) Clamp(value float64) float64 {
	return util.Coerce(value, l.Neg, l.Pos)
}

// Exceeds returns true if value lies outside the limits, values on a limit are within
func (l Limits) Exceeds(value float64) bool {
	return value > l.Pos || value < l.Neg
}

package domain

// Transform maps a raw cell value to a physical value. It is applied by raster
// readers before data reaches the accumulation code.
type Transform func(v float64) float64

// Identity leaves values untouched.
func Identity(v float64) float64 { return v }

// MeteoFranceNoData is the sentinel used by the 5-minute depth mosaics for
// cells outside radar coverage.
const MeteoFranceNoData = 65535

// MeteoFranceScale converts the 5-minute depth mosaics (hundredths of mm, with
// a 65535 sentinel) to millimetres. The sentinel becomes zero.
func MeteoFranceScale(v float64) float64 {
	if v == MeteoFranceNoData {
		return 0
	}
	return v / 100
}

// Apply runs t over every cell of r in place. A nil transform is the identity.
func (t Transform) Apply(r *Raster) {
	if t == nil || r == nil {
		return
	}
	for i, v := range r.Data {
		r.Data[i] = t(v)
	}
}

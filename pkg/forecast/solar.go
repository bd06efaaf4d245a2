package forecast

import "math"

// Altitude approximates the solar altitude in degrees for an hour of the day
// using an equinox-like path: 0 at 06:00 and 18:00, 90 at noon and -1 while
// the sun is below the horizon.
func Altitude(hour int) float64 {
	if hour < 6 || hour > 18 {
		return -1
	}
	return math.Sin(math.Pi*float64(hour-6)/12) * 90
}

// altitudeFactor is the altitude normalised to [0,1].
func altitudeFactor(hour int) float64 {
	return math.Max(0, Altitude(hour)) / 90
}

// clearSkyRadiation is the rough global horizontal irradiance (W/m²) at an
// hour attenuated by cloud cover. Clouds block up to 85% of it.
func clearSkyRadiation(hour int, cloudCover float64) float64 {
	return math.Max(0, Altitude(hour)) * 12 * (1 - 0.85*cloudCover/100)
}

// derivedUVIndex peaks at 12 under a clear noon sky. Clouds block up to 70%.
func derivedUVIndex(hour int, cloudCover float64) float64 {
	return math.Max(0, altitudeFactor(hour)*12*(1-0.7*cloudCover/100))
}

// gridLoad is a display-only estimate of grid demand (%) by hour and
// temperature.
func gridLoad(hour int, tempC float64) float64 {
	var base float64
	h := float64(hour)
	switch {
	case hour < 6:
		base = 30 + 2*h
	case hour < 10:
		base = 50 + 10*(h-6)
	case hour < 17:
		base = 70
	case hour < 21:
		base = 80 + 5*(h-17)
	default:
		base = 60 - 10*(h-21)
	}

	factor := 1.0
	if tempC > 25 {
		factor = 1 + 0.05*(tempC-25)
	}
	if tempC < 10 {
		factor = 1 + 0.03*(10-tempC)
	}
	return math.Min(100, base*factor)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package lifecycle

import (
	"math"
	"time"
)

// RoundMinutes redondea una duración al minuto entero más cercano.
func RoundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

// Elapsed minutos trabajados: max(0, round(end - start) - pausedMinutes).
// Resultados negativos (desfase de reloj, pausas concurrentes) se fijan en cero.
func Elapsed(start, end time.Time, pausedMinutes int) int {
	m := RoundMinutes(end.Sub(start)) - pausedMinutes
	if m < 0 {
		return 0
	}
	return m
}

// minutesBetween minutos redondeados entre from y to, nunca negativos,
// para que PauseDurationMinutes sea monótono.
func minutesBetween(from, to time.Time) int {
	m := RoundMinutes(to.Sub(from))
	if m < 0 {
		return 0
	}
	return m
}

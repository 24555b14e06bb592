// Package evaluate scores a detection run: repetition decoding, BER and SNR
package evaluate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// UndefinedSnrError is returned when host and watermarked signals do not differ
type UndefinedSnrError struct {
	Samples int
}

func (e *UndefinedSnrError) Error() string {
	return fmt.Sprintf("snr undefined: signals are identical over %d samples", e.Samples)
}

// SNR returns 10*log10(sum(host^2) / sum((host-marked)^2)) in dB over the
// samples both signals share.
func SNR(host, marked []float64) (float64, error) {
	n := min(len(host), len(marked))
	if n == 0 {
		return 0, &UndefinedSnrError{Samples: 0}
	}

	h := host[:n]
	diff := make([]float64, n)
	floats.SubTo(diff, h, marked[:n])

	noise := floats.Dot(diff, diff)
	if noise == 0 {
		return 0, &UndefinedSnrError{Samples: n}
	}

	signal := floats.Dot(h, h)
	return 10 * math.Log10(signal/noise), nil
}

// ValidateSNR reports whether the embedding stayed above a fidelity threshold
func ValidateSNR(snr float64, threshold float64) bool {
	if math.IsInf(snr, 1) {
		return true
	}
	return snr >= threshold
}

package watermark

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// RealCepstrum returns real(IFFT(log(|FFT(frame)|^2 + floor)))
func RealCepstrum(frame []float64, floor float64) []float64 {
	spectrum := fft.FFTReal(frame)

	logPower := make([]complex128, len(spectrum))
	for i, c := range spectrum {
		re, im := real(c), imag(c)
		logPower[i] = complex(math.Log(re*re+im*im+floor), 0)
	}

	// go-dsp scales the inverse transform by 1/N
	inv := fft.IFFT(logPower)
	ceps := make([]float64, len(inv))
	for i, c := range inv {
		ceps[i] = real(c)
	}
	return ceps
}

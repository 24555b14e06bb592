package evaluate

import (
	"watermark-backend/watermark"
)

// Report is the outcome of one evaluation run
type Report struct {
	Recovered watermark.BitSequence `json:"-"`
	BER       float64               `json:"ber"`
	SNR       float64               `json:"snr"`
	Errors    int                   `json:"errors"`
	Bits      int                   `json:"bits"`
}

// Evaluate decodes the detected bits by majority vote, compares them with the
// original watermark and measures the embedding SNR.
func Evaluate(detected, original watermark.BitSequence, reps int, host, marked []float64) (Report, error) {
	recovered, err := MajorityVote(detected, reps, len(original))
	if err != nil {
		return Report{}, err
	}

	errs, err := Mismatches(recovered, original)
	if err != nil {
		return Report{}, err
	}

	snr, err := SNR(host, marked)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Recovered: recovered,
		BER:       errorRate(errs, len(original)),
		SNR:       snr,
		Errors:    errs,
		Bits:      len(original),
	}, nil
}

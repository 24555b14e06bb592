package evaluate

import (
	"fmt"

	"watermark-backend/watermark"
)

// MajorityVote collapses every group of reps detected bits into one bit.
// A group averaging exactly 0.5 decodes to 1.
func MajorityVote(detected watermark.BitSequence, reps, effective int) (watermark.BitSequence, error) {
	if reps < 1 {
		return nil, fmt.Errorf("repetition factor must be at least 1, got %d", reps)
	}
	if need := reps * effective; len(detected) < need {
		return nil, &watermark.SequenceLengthMismatchError{
			Name:     "detected bits",
			Expected: need,
			Actual:   len(detected),
		}
	}

	recovered := make(watermark.BitSequence, effective)
	for j := range effective {
		ones := 0
		for _, b := range detected[j*reps : j*reps+reps] {
			ones += int(b)
		}
		if 2*ones >= reps {
			recovered[j] = 1
		}
	}
	return recovered, nil
}

// Mismatches counts the positions where recovered and original differ
func Mismatches(recovered, original watermark.BitSequence) (int, error) {
	if len(original) == 0 {
		return 0, fmt.Errorf("original watermark is empty")
	}
	if len(recovered) < len(original) {
		return 0, &watermark.SequenceLengthMismatchError{
			Name:     "recovered watermark",
			Expected: len(original),
			Actual:   len(recovered),
		}
	}

	errs := 0
	for i, b := range original {
		if recovered[i] != b {
			errs++
		}
	}
	return errs, nil
}

// BER returns the percentage of positions where recovered and original differ
func BER(recovered, original watermark.BitSequence) (float64, error) {
	errs, err := Mismatches(recovered, original)
	if err != nil {
		return 0, err
	}
	return errorRate(errs, len(original)), nil
}

func errorRate(errs, n int) float64 {
	return float64(errs) / float64(n) * 100
}

package watermark

import "fmt"

// InsufficientSignalError is returned when the host cannot carry a single effective bit
type InsufficientSignalError struct {
	SignalLength int
	Required     int
}

func (e *InsufficientSignalError) Error() string {
	return fmt.Sprintf("insufficient signal: %d samples carry no watermark bit, need at least %d",
		e.SignalLength, e.Required)
}

// ShortSignalError is returned when fewer full frames fit than the parameters ask for
type ShortSignalError struct {
	SignalLength int
	Required     int
	Frames       int
}

func (e *ShortSignalError) Error() string {
	return fmt.Sprintf("signal too short: %d frames need %d samples, got %d",
		e.Frames, e.Required, e.SignalLength)
}

// SequenceLengthMismatchError is returned when a watermark or key is shorter than the frame count
type SequenceLengthMismatchError struct {
	Name     string
	Expected int
	Actual   int
}

func (e *SequenceLengthMismatchError) Error() string {
	return fmt.Sprintf("%s has %d bits, expected at least %d", e.Name, e.Actual, e.Expected)
}

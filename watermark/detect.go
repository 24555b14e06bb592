package watermark

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DetectionMode picks the per-frame decision rule
type DetectionMode int

const (
	// ModeDirectA compares the cepstrum at the two candidate delays
	ModeDirectA DetectionMode = iota
	// ModeDifferential subtracts the cepstrum NegativeDelay samples later before comparing
	ModeDifferential
	// ModeDirectB is the direct rule under a second distortion label
	ModeDirectB
)

func (m DetectionMode) String() string {
	switch m {
	case ModeDirectA:
		return "signal1"
	case ModeDifferential:
		return "signal2"
	case ModeDirectB:
		return "signal3"
	default:
		return fmt.Sprintf("DetectionMode(%d)", int(m))
	}
}

// ParseDetectionMode accepts both the signal1/2/3 labels and the descriptive names
func ParseDetectionMode(s string) (DetectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "signal1", "direct-a", "direct":
		return ModeDirectA, nil
	case "signal2", "differential":
		return ModeDifferential, nil
	case "signal3", "direct-b":
		return ModeDirectB, nil
	default:
		return 0, fmt.Errorf("unknown detection mode %q", s)
	}
}

// Detector recovers one bit per frame from the cepstrum of a received signal
type Detector struct {
	cfg     Config
	params  FrameParameters
	mode    DetectionMode
	workers int
}

func NewDetector(cfg Config, params FrameParameters, mode DetectionMode) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := params.matches(cfg); err != nil {
		return nil, err
	}
	if mode < ModeDirectA || mode > ModeDirectB {
		return nil, fmt.Errorf("unknown detection mode %d", int(mode))
	}

	return &Detector{
		cfg:     cfg,
		params:  params,
		mode:    mode,
		workers: runtime.GOMAXPROCS(0),
	}, nil
}

// SetWorkers bounds the number of goroutines scoring frames
func (d *Detector) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	d.workers = n
}

// Detect returns EmbedBitCount bits in frame order
func (d *Detector) Detect(signal []float64, key BitSequence) (BitSequence, error) {
	nbit := d.params.EmbedBitCount
	if len(key) < nbit {
		return nil, &SequenceLengthMismatchError{Name: "secret key", Expected: nbit, Actual: len(key)}
	}
	if err := key[:nbit].Validate(); err != nil {
		return nil, fmt.Errorf("secret key: %w", err)
	}
	if err := d.params.checkSignal(len(signal)); err != nil {
		return nil, err
	}

	bits := make(BitSequence, nbit)
	shift, frameLen := d.params.FrameShift, d.cfg.FrameLength
	chunk := (nbit + d.workers - 1) / d.workers

	var g errgroup.Group
	g.SetLimit(d.workers)
	for start := 0; start < nbit; start += chunk {
		end := min(start+chunk, nbit)
		g.Go(func() error {
			for i := start; i < end; i++ {
				ptr := i * shift
				bits[i] = d.DetectFrame(signal[ptr:ptr+frameLen], key[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bits, nil
}

// DetectFrame decides a single bit from one frame and its key bit
func (d *Detector) DetectFrame(frame []float64, keyBit Bit) Bit {
	ceps := RealCepstrum(frame, d.cfg.LogFloor)
	high, low := d.cfg.Delays.Candidates(keyBit)

	var hi, lo float64
	switch d.mode {
	case ModeDifferential:
		neg := d.cfg.NegativeDelay
		hi = ceps[high] - ceps[high+neg]
		lo = ceps[low] - ceps[low+neg]
	default:
		// direct-a and direct-b share one rule
		hi, lo = ceps[high], ceps[low]
	}

	if hi > lo {
		return 1
	}
	return 0
}

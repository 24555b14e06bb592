package watermark

import (
	"fmt"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

// Embedder adds key-selected echoes to every frame of a host signal
type Embedder struct {
	cfg    Config
	params FrameParameters
	window []float64
}

func NewEmbedder(cfg Config, params FrameParameters) (*Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := params.matches(cfg); err != nil {
		return nil, err
	}

	return &Embedder{
		cfg:    cfg,
		params: params,
		window: window.Hann(cfg.FrameLength),
	}, nil
}

func (p FrameParameters) matches(cfg Config) error {
	if p.FrameLength != cfg.FrameLength {
		return fmt.Errorf("frame length %d does not match configured %d", p.FrameLength, cfg.FrameLength)
	}
	if p.FrameShift != cfg.frameShift() || p.OverlapLength != cfg.overlapLength() {
		return fmt.Errorf("frame shift %d / overlap %d do not match configured %d / %d",
			p.FrameShift, p.OverlapLength, cfg.frameShift(), cfg.overlapLength())
	}
	if p.EmbedBitCount <= 0 {
		return fmt.Errorf("embed bit count must be positive, got %d", p.EmbedBitCount)
	}
	return nil
}

// tailAccumulator carries the previous windowed frame across the overlap-add fold
type tailAccumulator struct {
	tail []float64
}

// Embed returns a new signal of the same length as host with one echo-coded
// bit per frame. Samples past EmbedBitCount*FrameShift are copied unchanged.
func (e *Embedder) Embed(host []float64, wm, key BitSequence) ([]float64, error) {
	nbit := e.params.EmbedBitCount
	if len(wm) < nbit {
		return nil, &SequenceLengthMismatchError{Name: "watermark", Expected: nbit, Actual: len(wm)}
	}
	if len(key) < nbit {
		return nil, &SequenceLengthMismatchError{Name: "secret key", Expected: nbit, Actual: len(key)}
	}
	if err := wm[:nbit].Validate(); err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}
	if err := key[:nbit].Validate(); err != nil {
		return nil, fmt.Errorf("secret key: %w", err)
	}
	if err := e.params.checkSignal(len(host)); err != nil {
		return nil, err
	}

	shift := e.params.FrameShift
	out := make([]float64, len(host))
	acc := tailAccumulator{tail: make([]float64, e.cfg.FrameLength)}

	for i := range nbit {
		ptr := i * shift
		frame := host[ptr : ptr+e.cfg.FrameLength]
		echoed := e.echoFrame(frame, e.cfg.Delays.Select(key[i], wm[i]))

		var seg []float64
		seg, acc = e.overlapAdd(acc, echoed)
		copy(out[ptr:], seg)
	}

	copy(out[nbit*shift:], host[nbit*shift:])
	return out, nil
}

// echoFrame returns (frame + echo) multiplied by the Hann window
func (e *Embedder) echoFrame(frame []float64, delay int) []float64 {
	n := len(frame)
	out := make([]float64, n)
	copy(out, frame)

	floats.AddScaled(out[delay:], e.cfg.ControlStrength, frame[:n-delay])
	if e.cfg.Kernel == KernelPositiveNegative {
		neg := delay + e.cfg.NegativeDelay
		floats.AddScaled(out[neg:], -e.cfg.ControlStrength, frame[:n-neg])
	}

	floats.Mul(out, e.window)
	return out
}

// overlapAdd emits the FrameShift samples owned by the current frame and
// hands the frame on as the next accumulator.
func (e *Embedder) overlapAdd(acc tailAccumulator, echoed []float64) ([]float64, tailAccumulator) {
	shift, overlap := e.params.FrameShift, e.params.OverlapLength

	seg := make([]float64, shift)
	floats.AddTo(seg[:overlap], acc.tail[shift:], echoed[:overlap])
	copy(seg[overlap:], echoed[overlap:shift])

	return seg, tailAccumulator{tail: echoed}
}

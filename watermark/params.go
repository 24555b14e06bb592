package watermark

// FrameParameters is the framing and capacity layout derived for one host signal
type FrameParameters struct {
	FrameLength       int `json:"frame_length"`
	FrameShift        int `json:"frame_shift"`
	OverlapLength     int `json:"overlap_length"`
	EmbedBitCount     int `json:"embed_nbit"`
	EffectiveBitCount int `json:"effective_nbit"`

	// RawBitCount is the number of frames the signal could hold before
	// repetition grouping and the effective-bit cap were applied.
	RawBitCount int  `json:"raw_nbit"`
	Capped      bool `json:"capped"`
}

// ComputeParameters derives frame shift, overlap and bit capacity for a
// host of n samples. It is a pure function of its inputs.
func ComputeParameters(n int, cfg Config) (FrameParameters, error) {
	if err := cfg.Validate(); err != nil {
		return FrameParameters{}, err
	}

	shift := cfg.frameShift()
	overlap := cfg.overlapLength()

	// Go integer division truncates toward zero for either sign.
	// Negative lengths are never produced by a decoder and are untested.
	raw := (n - overlap) / shift

	p := FrameParameters{
		FrameLength:   cfg.FrameLength,
		FrameShift:    shift,
		OverlapLength: overlap,
		RawBitCount:   raw,
	}

	if cfg.RepetitionCoding {
		effective := raw / cfg.RepetitionFactor
		if effective > cfg.MaxEffectiveBits {
			effective = cfg.MaxEffectiveBits
			p.Capped = true
		}
		p.EffectiveBitCount = effective
		p.EmbedBitCount = effective * cfg.RepetitionFactor
	} else {
		p.EffectiveBitCount = raw
		p.EmbedBitCount = raw
	}

	if p.EffectiveBitCount <= 0 {
		return FrameParameters{}, &InsufficientSignalError{
			SignalLength: n,
			Required:     overlap + shift*cfg.Reps(),
		}
	}
	return p, nil
}

// RequiredSamples is the shortest signal holding every embedded frame
func (p FrameParameters) RequiredSamples() int {
	if p.EmbedBitCount <= 0 {
		return 0
	}
	return (p.EmbedBitCount-1)*p.FrameShift + p.FrameLength
}

func (p FrameParameters) checkSignal(n int) error {
	if need := p.RequiredSamples(); n < need {
		return &ShortSignalError{SignalLength: n, Required: need, Frames: p.EmbedBitCount}
	}
	return nil
}

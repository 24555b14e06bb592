package watermark

import (
	"errors"
	"fmt"
)

// Kernel selects the echo shape added to every frame
type Kernel string

const (
	// KernelPositive adds a single attenuated echo at the selected delay
	KernelPositive Kernel = "positive"
	// KernelPositiveNegative also subtracts an echo NegativeDelay samples later
	KernelPositiveNegative Kernel = "positive-negative"
)

// Config holds everything embedder and detector must agree on
type Config struct {
	FrameLength      int        `yaml:"frame_length" json:"frame_length"`
	OverlapFraction  float64    `yaml:"overlap" json:"overlap"`
	ControlStrength  float64    `yaml:"control_strength" json:"control_strength"`
	RepetitionCoding bool       `yaml:"repetition_coding" json:"repetition_coding"`
	RepetitionFactor int        `yaml:"repetition_factor" json:"repetition_factor"`
	MaxEffectiveBits int        `yaml:"max_effective_bits" json:"max_effective_bits"`
	Delays           DelayTable `yaml:"delays" json:"delays"`
	NegativeDelay    int        `yaml:"negative_delay" json:"negative_delay"`
	LogFloor         float64    `yaml:"log_floor" json:"log_floor"`
	Kernel           Kernel     `yaml:"kernel" json:"kernel"`
}

func DefaultConfig() Config {
	return Config{
		FrameLength:      4096,
		OverlapFraction:  0.5,
		ControlStrength:  0.2,
		RepetitionCoding: true,
		RepetitionFactor: 3,
		MaxEffectiveBits: 40,
		Delays:           DefaultDelayTable(),
		NegativeDelay:    4,
		LogFloor:         1e-5,
		Kernel:           KernelPositive,
	}
}

// Reps is the repetition factor in effect, 1 when repetition coding is off
func (c Config) Reps() int {
	if !c.RepetitionCoding {
		return 1
	}
	return c.RepetitionFactor
}

func (c Config) frameShift() int {
	return int(float64(c.FrameLength) * (1 - c.OverlapFraction))
}

func (c Config) overlapLength() int {
	return int(float64(c.FrameLength) * c.OverlapFraction)
}

// Validate rejects configurations the overlap-add fold or the detector cannot handle
func (c Config) Validate() error {
	if c.FrameLength <= 0 {
		return fmt.Errorf("frame length must be positive, got %d", c.FrameLength)
	}
	if c.OverlapFraction <= 0 || c.OverlapFraction > 0.5 {
		return fmt.Errorf("overlap must be in (0, 0.5], got %g", c.OverlapFraction)
	}
	if shift, overlap := c.frameShift(), c.overlapLength(); shift+overlap != c.FrameLength {
		return fmt.Errorf("frame shift %d and overlap %d do not tile frame length %d",
			shift, overlap, c.FrameLength)
	}
	if c.ControlStrength <= 0 {
		return fmt.Errorf("control strength must be positive, got %g", c.ControlStrength)
	}
	if c.RepetitionCoding && c.RepetitionFactor < 1 {
		return fmt.Errorf("repetition factor must be at least 1, got %d", c.RepetitionFactor)
	}
	if c.RepetitionCoding && c.MaxEffectiveBits < 1 {
		return errors.New("max effective bits must be at least 1")
	}
	if c.NegativeDelay <= 0 {
		return fmt.Errorf("negative delay must be positive, got %d", c.NegativeDelay)
	}
	if c.LogFloor <= 0 {
		return fmt.Errorf("log floor must be positive, got %g", c.LogFloor)
	}
	if err := c.Delays.Validate(c.FrameLength); err != nil {
		return err
	}
	if m := c.Delays.Max() + c.NegativeDelay; m >= c.FrameLength {
		return fmt.Errorf("delay %d plus negative offset exceeds frame length %d", m, c.FrameLength)
	}
	switch c.Kernel {
	case KernelPositive, KernelPositiveNegative:
	default:
		return fmt.Errorf("unknown echo kernel %q", c.Kernel)
	}
	return nil
}

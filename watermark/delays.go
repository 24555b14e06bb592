package watermark

import "fmt"

// DelayTable maps (secret key bit, watermark bit) to an echo delay in samples.
// Detection assumes D11 < D10 and D01 < D00.
type DelayTable struct {
	D11 int `yaml:"d11" json:"d11"`
	D10 int `yaml:"d10" json:"d10"`
	D01 int `yaml:"d01" json:"d01"`
	D00 int `yaml:"d00" json:"d00"`
}

// DefaultDelayTable returns the 100/110/120/130 sample layout
func DefaultDelayTable() DelayTable {
	return DelayTable{D11: 100, D10: 110, D01: 120, D00: 130}
}

// NewDelayTable builds a table and validates it against the frame length
func NewDelayTable(d11, d10, d01, d00, frameLength int) (DelayTable, error) {
	t := DelayTable{D11: d11, D10: d10, D01: d01, D00: d00}
	if err := t.Validate(frameLength); err != nil {
		return DelayTable{}, err
	}
	return t, nil
}

// Validate checks positivity, distinctness, ordering and the frame bound
func (t DelayTable) Validate(frameLength int) error {
	all := [4]int{t.D11, t.D10, t.D01, t.D00}
	for i, d := range all {
		if d <= 0 {
			return fmt.Errorf("delay %d must be positive, got %d", i, d)
		}
		if d >= frameLength {
			return fmt.Errorf("delay %d must be below frame length %d", d, frameLength)
		}
		for _, other := range all[i+1:] {
			if d == other {
				return fmt.Errorf("duplicate delay %d", d)
			}
		}
	}
	if t.D11 >= t.D10 {
		return fmt.Errorf("delay ordering violated: d11=%d must be below d10=%d", t.D11, t.D10)
	}
	if t.D01 >= t.D00 {
		return fmt.Errorf("delay ordering violated: d01=%d must be below d00=%d", t.D01, t.D00)
	}
	return nil
}

// Select returns the embedding delay for one frame
func (t DelayTable) Select(keyBit, wmBit Bit) int {
	if keyBit == 1 {
		if wmBit == 1 {
			return t.D11
		}
		return t.D10
	}
	if wmBit == 1 {
		return t.D01
	}
	return t.D00
}

// Candidates returns the (bit-1, bit-0) delay pair consulted for a key bit
func (t DelayTable) Candidates(keyBit Bit) (high, low int) {
	if keyBit == 1 {
		return t.D11, t.D10
	}
	return t.D01, t.D00
}

// Max returns the largest delay in the table
func (t DelayTable) Max() int {
	return max(t.D11, t.D10, t.D01, t.D00)
}

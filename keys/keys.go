// Package keys generates watermark payloads and secret keys
package keys

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math/rand"
	"time"

	"watermark-backend/watermark"
)

type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator with a fixed seed
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// NewRandomGenerator seeds from the clock
func NewRandomGenerator() *Generator {
	return NewGenerator(time.Now().UnixNano())
}

// NewPassphraseGenerator derives a deterministic seed from a passphrase
func NewPassphraseGenerator(passphrase string) *Generator {
	return NewGenerator(SeedFromPassphrase(passphrase))
}

func SeedFromPassphrase(passphrase string) int64 {
	hash := md5.Sum([]byte(passphrase))
	return int64(binary.BigEndian.Uint64(hash[:8]))
}

// Bits draws n uniform bits
func (g *Generator) Bits(n int) watermark.BitSequence {
	bits := make(watermark.BitSequence, n)
	for i := range bits {
		bits[i] = watermark.Bit(g.rng.Intn(2))
	}
	return bits
}

// Session is the material produced before embedding
type Session struct {
	Watermark         watermark.BitSequence
	WatermarkExtended watermark.BitSequence
	SecretKey         watermark.BitSequence
}

// GenerateSession draws a watermark of nbit bits and an independent key,
// both extended by the configured repetition factor.
func (g *Generator) GenerateSession(nbit int, cfg watermark.Config) (Session, error) {
	if nbit <= 0 {
		return Session{}, fmt.Errorf("watermark length must be positive, got %d", nbit)
	}
	reps := cfg.Reps()
	if reps < 1 {
		return Session{}, fmt.Errorf("repetition factor must be at least 1, got %d", reps)
	}

	wm := g.Bits(nbit)
	key := g.Bits(nbit)
	return Session{
		Watermark:         wm,
		WatermarkExtended: wm.Extend(reps),
		SecretKey:         key.Extend(reps),
	}, nil
}

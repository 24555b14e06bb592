package persist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"watermark-backend/watermark"
)

const (
	keyFrameShift    = "frame_shift"
	keyEmbedBits     = "embed_nbit"
	keyEffectiveBits = "effective_nbit"
)

// MalformedParameterFileError describes unparsable or incomplete key=value data
type MalformedParameterFileError struct {
	Line   int
	Reason string
}

func (e *MalformedParameterFileError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("malformed parameter file: %s", e.Reason)
	}
	return fmt.Sprintf("malformed parameter file at line %d: %s", e.Line, e.Reason)
}

// WriteParams writes frame_shift, embed_nbit and effective_nbit
func WriteParams(w io.Writer, p watermark.FrameParameters) error {
	_, err := fmt.Fprintf(w, "%s=%d\n%s=%d\n%s=%d\n",
		keyFrameShift, p.FrameShift,
		keyEmbedBits, p.EmbedBitCount,
		keyEffectiveBits, p.EffectiveBitCount)
	return err
}

// ReadParams parses a parameter file. Frame length is not stored, so the
// caller supplies it and the overlap is whatever the shift leaves of the frame.
func ReadParams(r io.Reader, frameLength int) (watermark.FrameParameters, error) {
	values := make(map[string]int, 3)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return watermark.FrameParameters{}, &MalformedParameterFileError{Line: line, Reason: fmt.Sprintf("missing '=' in %q", text)}
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return watermark.FrameParameters{}, &MalformedParameterFileError{Line: line, Reason: fmt.Sprintf("value of %s is not an integer", key)}
		}
		values[strings.TrimSpace(key)] = n
	}
	if err := sc.Err(); err != nil {
		return watermark.FrameParameters{}, fmt.Errorf("failed to read parameters: %w", err)
	}

	for _, k := range []string{keyFrameShift, keyEmbedBits, keyEffectiveBits} {
		if _, ok := values[k]; !ok {
			return watermark.FrameParameters{}, &MalformedParameterFileError{Reason: "missing " + k}
		}
	}

	shift := values[keyFrameShift]
	if shift <= 0 || shift > frameLength {
		return watermark.FrameParameters{}, &MalformedParameterFileError{
			Reason: fmt.Sprintf("frame_shift %d outside (0, %d]", shift, frameLength),
		}
	}

	return watermark.FrameParameters{
		FrameLength:       frameLength,
		FrameShift:        shift,
		OverlapLength:     frameLength - shift,
		EmbedBitCount:     values[keyEmbedBits],
		EffectiveBitCount: values[keyEffectiveBits],
	}, nil
}

func SaveParams(path string, p watermark.FrameParameters) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteParams(f, p); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func LoadParams(path string, frameLength int) (watermark.FrameParameters, error) {
	f, err := os.Open(path)
	if err != nil {
		return watermark.FrameParameters{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	p, err := ReadParams(f, frameLength)
	if err != nil {
		return watermark.FrameParameters{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Package persist reads and writes bit sequences and embedding parameters as text
package persist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"watermark-backend/watermark"
)

// MalformedSequenceError points at the first line that is not a single 0 or 1
type MalformedSequenceError struct {
	Line    int
	Content string
}

func (e *MalformedSequenceError) Error() string {
	return fmt.Sprintf("malformed bit sequence at line %d: %q", e.Line, e.Content)
}

// WriteBits writes one bit per line
func WriteBits(w io.Writer, bits watermark.BitSequence) error {
	bw := bufio.NewWriter(w)
	for _, b := range bits {
		if err := bw.WriteByte('0' + byte(b)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadBits parses one bit per line. Blank lines are skipped.
func ReadBits(r io.Reader) (watermark.BitSequence, error) {
	var bits watermark.BitSequence
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		switch text {
		case "":
		case "0":
			bits = append(bits, 0)
		case "1":
			bits = append(bits, 1)
		default:
			return nil, &MalformedSequenceError{Line: line, Content: text}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bit sequence: %w", err)
	}
	return bits, nil
}

func SaveBits(path string, bits watermark.BitSequence) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteBits(f, bits); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func LoadBits(path string) (watermark.BitSequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	bits, err := ReadBits(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bits, nil
}

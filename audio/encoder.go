// Package audio moves mono 16-bit PCM between containers and float sample slices
package audio

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"

	"github.com/bogem/id3v2"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Quantize rounds float samples to int16 range, clamping overflow
func Quantize(samples []float64) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(s)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int(v)
	}
	return out
}

func intBuffer(samples []float64, sampleRate int) *audio.IntBuffer {
	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: RequiredChannels,
			SampleRate:  sampleRate,
		},
		Data:           Quantize(samples),
		SourceBitDepth: RequiredBitDepth,
	}
}

func writeWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	encoder := wav.NewEncoder(w, sampleRate, RequiredBitDepth, RequiredChannels, wavFormatPCM)
	if err := encoder.Write(intBuffer(samples, sampleRate)); err != nil {
		return fmt.Errorf("failed to encode WAV: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close WAV encoder: %w", err)
	}
	return nil
}

// WriteWAV stores samples as a mono 16-bit WAV file
func (ad *AudioDecoder) WriteWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads any supported container from disk
func (ad *AudioDecoder) ReadFile(path string) ([]float64, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	samples, meta, err := ad.Decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return samples, meta.SampleRate, nil
}

func (ad *AudioDecoder) EncodeWAV(samples []float64, sampleRate int) ([]byte, error) {
	// wav.NewEncoder needs a WriteSeeker
	tempFile, err := os.CreateTemp("", "wm_*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	if err := writeWAV(tempFile, samples, sampleRate); err != nil {
		return nil, err
	}

	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind WAV data: %w", err)
	}
	wavData, err := io.ReadAll(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV data: %w", err)
	}
	return wavData, nil
}

// CheckLAME verifies that the LAME encoder is installed and accessible
func CheckLAME() error {
	return exec.Command("lame", "--version").Run()
}

// EncodeMP3 runs the samples through lame. When originalMP3 is given its
// ID3 title/artist/album/genre/year are copied onto the result.
func (ad *AudioDecoder) EncodeMP3(samples []float64, sampleRate int, originalMP3 []byte) ([]byte, error) {
	tempWAV, err := os.CreateTemp("", "wm_*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary WAV file: %w", err)
	}
	defer os.Remove(tempWAV.Name())
	defer tempWAV.Close()

	tempMP3, err := os.CreateTemp("", "wm_*.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary MP3 file: %w", err)
	}
	defer os.Remove(tempMP3.Name())
	defer tempMP3.Close()

	if err := writeWAV(tempWAV, samples, sampleRate); err != nil {
		return nil, err
	}
	tempWAV.Close()

	cmd := exec.Command("lame", "--preset", "standard", "-h", "-q", "0", "--add-id3v2", "--pad-id3v2", "--nohist", tempWAV.Name(), tempMP3.Name())
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to encode MP3 (lame not installed?): %w", err)
	}

	mp3Data, err := os.ReadFile(tempMP3.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read MP3 file: %w", err)
	}
	if len(originalMP3) == 0 {
		return mp3Data, nil
	}

	withMeta, err := ad.preserveMP3Metadata(originalMP3, tempMP3.Name())
	if err != nil {
		log.Printf("Warning: could not preserve metadata: %v", err)
		return mp3Data, nil
	}
	return withMeta, nil
}

func (ad *AudioDecoder) preserveMP3Metadata(originalMP3Data []byte, newPath string) ([]byte, error) {
	tempOriginal, err := os.CreateTemp("", "original_*.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp original file: %w", err)
	}
	defer os.Remove(tempOriginal.Name())

	if _, err := tempOriginal.Write(originalMP3Data); err != nil {
		tempOriginal.Close()
		return nil, fmt.Errorf("failed to write original data: %w", err)
	}
	tempOriginal.Close()

	originalTag, err := id3v2.Open(tempOriginal.Name(), id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to parse original tags: %w", err)
	}
	defer originalTag.Close()

	newTag, err := id3v2.Open(newPath, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to parse new tags: %w", err)
	}
	defer newTag.Close()

	newTag.SetTitle(originalTag.Title())
	newTag.SetArtist(originalTag.Artist())
	newTag.SetAlbum(originalTag.Album())
	newTag.SetGenre(originalTag.Genre())
	newTag.SetYear(originalTag.Year())

	if err := newTag.Save(); err != nil {
		return nil, fmt.Errorf("failed to save tags: %w", err)
	}

	return os.ReadFile(newPath)
}

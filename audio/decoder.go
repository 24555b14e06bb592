package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"watermark-backend/models"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tosone/minimp3"
)

const (
	RequiredChannels = 1
	RequiredBitDepth = 16
	wavFormatPCM     = 1
)

// UnsupportedFormatError is returned for anything other than mono 16-bit PCM
type UnsupportedFormatError struct {
	Format   string
	Channels int
	BitDepth int
	Reason   string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s audio: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("unsupported %s audio: %d channel(s) at %d bits, need %d channel at %d bits",
		e.Format, e.Channels, e.BitDepth, RequiredChannels, RequiredBitDepth)
}

type AudioDecoder struct{}

func NewAudioDecoder() *AudioDecoder {
	return &AudioDecoder{}
}

// Decode picks the container from its magic bytes
func (ad *AudioDecoder) Decode(data []byte) ([]float64, *models.AudioMetadata, error) {
	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("RIFF")):
		return ad.DecodeWAV(data)
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("fLaC")):
		return ad.DecodeFLAC(data)
	case isMP3(data):
		return ad.DecodeMP3(data)
	default:
		return nil, nil, &UnsupportedFormatError{Format: "unknown", Reason: "not a WAV, FLAC or MP3 stream"}
	}
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func (ad *AudioDecoder) DecodeWAV(data []byte) ([]float64, *models.AudioMetadata, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, nil, &UnsupportedFormatError{Format: "wav", Reason: "invalid WAV file"}
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, nil, &UnsupportedFormatError{Format: "wav", Reason: fmt.Sprintf("audio format %d is not PCM", decoder.WavAudioFormat)}
	}
	if err := checkLayout("wav", int(decoder.NumChans), int(decoder.BitDepth)); err != nil {
		return nil, nil, err
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v)
	}

	return samples, newMetadata("wav", int(decoder.SampleRate), len(samples)), nil
}

func (ad *AudioDecoder) DecodeMP3(mp3Data []byte) ([]float64, *models.AudioMetadata, error) {
	decoder, data, err := minimp3.DecodeFull(mp3Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer decoder.Close()

	// minimp3 always emits 16-bit little-endian PCM
	if err := checkLayout("mp3", decoder.Channels, RequiredBitDepth); err != nil {
		return nil, nil, err
	}

	samples := make([]float64, len(data)/2)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}

	return samples, newMetadata("mp3", decoder.SampleRate, len(samples)), nil
}

func (ad *AudioDecoder) DecodeFLAC(data []byte) ([]float64, *models.AudioMetadata, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	defer stream.Close()

	if err := checkLayout("flac", int(stream.Info.NChannels), int(stream.Info.BitsPerSample)); err != nil {
		return nil, nil, err
	}

	samples := make([]float64, 0, stream.Info.NSamples)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}
		for _, s := range frame.Subframes[0].Samples {
			samples = append(samples, float64(s))
		}
	}

	return samples, newMetadata("flac", int(stream.Info.SampleRate), len(samples)), nil
}

func checkLayout(format string, channels, bitDepth int) error {
	if channels != RequiredChannels || bitDepth != RequiredBitDepth {
		return &UnsupportedFormatError{Format: format, Channels: channels, BitDepth: bitDepth}
	}
	return nil
}

func newMetadata(format string, sampleRate, numSamples int) *models.AudioMetadata {
	meta := &models.AudioMetadata{
		Format:     format,
		SampleRate: sampleRate,
		Channels:   RequiredChannels,
		BitDepth:   RequiredBitDepth,
		NumSamples: numSamples,
	}
	if sampleRate > 0 {
		meta.Duration = float64(numSamples) / float64(sampleRate)
	}
	return meta
}

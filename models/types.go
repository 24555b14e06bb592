// Package models contain needed models
package models

// AudioMetadata represents metadata about a decoded signal
type AudioMetadata struct {
	Format     string  `json:"format"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	BitDepth   int     `json:"bit_depth"`
	Duration   float64 `json:"duration"`
	NumSamples int     `json:"num_samples"`
}

// WatermarkResponse is the generic success/failure envelope
type WatermarkResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// KeysResponse carries a freshly generated watermark and secret key
type KeysResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	Watermark         string `json:"watermark"`
	WatermarkExtended string `json:"watermark_extended"`
	SecretKey         string `json:"secret_key"`
}

// ParamsResponse reports the frame layout derived for an uploaded host
type ParamsResponse struct {
	Success           bool           `json:"success"`
	Message           string         `json:"message"`
	FrameLength       int            `json:"frame_length"`
	FrameShift        int            `json:"frame_shift"`
	OverlapLength     int            `json:"overlap_length"`
	EmbedBitCount     int            `json:"embed_nbit"`
	EffectiveBitCount int            `json:"effective_nbit"`
	RawBitCount       int            `json:"raw_nbit"`
	Capped            bool           `json:"capped"`
	Audio             *AudioMetadata `json:"audio,omitempty"`
}

// DetectResponse carries the raw detected bits
type DetectResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Mode          string `json:"mode"`
	DetectedBits  string `json:"detected_bits"`
	EmbedBitCount int    `json:"embed_nbit"`
}

// EvaluateResponse represents the result of a BER/SNR evaluation
type EvaluateResponse struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	Recovered string  `json:"recovered"`
	BER       float64 `json:"ber"`
	SNR       float64 `json:"snr"`
	Errors    int     `json:"errors"`
	Bits      int     `json:"bits"`
}

// Package handlers is made to handle requests
package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"watermark-backend/audio"
	"watermark-backend/evaluate"
	"watermark-backend/keys"
	"watermark-backend/models"
	"watermark-backend/persist"
	"watermark-backend/watermark"

	"github.com/gin-gonic/gin"
)

type WatermarkHandler struct {
	audioDecoder *audio.AudioDecoder
	cfg          watermark.Config
	maxUpload    int64
}

func NewWatermarkHandler(cfg watermark.Config, maxUploadMB int64) *WatermarkHandler {
	return &WatermarkHandler{
		audioDecoder: audio.NewAudioDecoder(),
		cfg:          cfg,
		maxUpload:    maxUploadMB << 20,
	}
}

// Register mounts the watermark routes under the given group
func (h *WatermarkHandler) Register(api *gin.RouterGroup) {
	api.GET("/health", h.HealthCheck)

	wm := api.Group("/watermark")
	{
		wm.POST("/keys", h.GenerateKeys)
		wm.POST("/params", h.ComputeParams)
		wm.POST("/embed", h.EmbedWatermark)
		wm.POST("/detect", h.DetectWatermark)
		wm.POST("/evaluate", h.EvaluateWatermark)
	}
}

func (h *WatermarkHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Echo watermarking API is running",
		"version": "1.0.0",
	})
}

func (h *WatermarkHandler) GenerateKeys(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Failed to parse form: %v", err))
		return
	}

	nbit := h.cfg.MaxEffectiveBits
	if s := c.PostForm("bits"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, "bits must be a positive integer")
			return
		}
		nbit = n
	}

	var gen *keys.Generator
	switch {
	case c.PostForm("passphrase") != "":
		gen = keys.NewPassphraseGenerator(c.PostForm("passphrase"))
	case c.PostForm("seed") != "":
		seed, err := strconv.ParseInt(c.PostForm("seed"), 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "seed must be an integer")
			return
		}
		gen = keys.NewGenerator(seed)
	default:
		gen = keys.NewRandomGenerator()
	}

	session, err := gen.GenerateSession(nbit, h.cfg)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, models.KeysResponse{
		Success:           true,
		Message:           "Watermark and secret key generated successfully",
		Watermark:         session.Watermark.String(),
		WatermarkExtended: session.WatermarkExtended.String(),
		SecretKey:         session.SecretKey.String(),
	})
}

func (h *WatermarkHandler) ComputeParams(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.maxUpload); err != nil {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Failed to parse form: %v", err))
		return
	}

	samples, meta, _, _, err := h.decodeUpload(c, "audio_file")
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}

	params, err := watermark.ComputeParameters(len(samples), h.cfg)
	if err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to compute parameters: %v", err))
		return
	}

	c.JSON(http.StatusOK, models.ParamsResponse{
		Success:           true,
		Message:           "Parameters computed successfully",
		FrameLength:       params.FrameLength,
		FrameShift:        params.FrameShift,
		OverlapLength:     params.OverlapLength,
		EmbedBitCount:     params.EmbedBitCount,
		EffectiveBitCount: params.EffectiveBitCount,
		RawBitCount:       params.RawBitCount,
		Capped:            params.Capped,
		Audio:             meta,
	})
}

func (h *WatermarkHandler) EmbedWatermark(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.maxUpload); err != nil {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Failed to parse form: %v", err))
		return
	}

	host, meta, raw, filename, err := h.decodeUpload(c, "audio_file")
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}

	params, err := watermark.ComputeParameters(len(host), h.cfg)
	if err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to compute parameters: %v", err))
		return
	}

	wm, err := h.watermarkField(c, params)
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	key, err := h.rawBitsField(c, "secret_key")
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}

	var minSNR *float64
	if s := c.PostForm("min_snr"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "min_snr must be a number")
			return
		}
		minSNR = &v
	}

	embedder, err := watermark.NewEmbedder(h.cfg, params)
	if err != nil {
		fail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to create embedder: %v", err))
		return
	}
	marked, err := embedder.Embed(host, wm, key)
	if err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to embed watermark: %v", err))
		return
	}

	var out []byte
	contentType := "audio/wav"
	ext := "wav"
	if strings.EqualFold(c.PostForm("format"), "mp3") {
		var original []byte
		if meta.Format == "mp3" {
			original = raw
		}
		out, err = h.audioDecoder.EncodeMP3(marked, meta.SampleRate, original)
		contentType, ext = "audio/mpeg", "mp3"
	} else {
		out, err = h.audioDecoder.EncodeWAV(marked, meta.SampleRate)
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to encode output: %v", err))
		return
	}

	// SNR of the file actually returned, after quantization and encoding
	delivered, _, err := h.audioDecoder.Decode(out)
	if err != nil {
		fail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to decode output: %v", err))
		return
	}
	snr, err := evaluate.SNR(host, delivered)
	if err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to measure SNR: %v", err))
		return
	}

	log.Printf("embedded %d bits (%d effective) into %s, SNR %.2f dB",
		params.EmbedBitCount, params.EffectiveBitCount, filename, snr)

	baseFilename := strings.TrimSuffix(filename, filepath.Ext(filename))
	outputFilename := fmt.Sprintf("%s_wmed.%s", baseFilename, ext)

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputFilename))
	c.Header("Content-Length", fmt.Sprintf("%d", len(out)))

	c.Header("X-Watermark-Frame-Shift", strconv.Itoa(params.FrameShift))
	c.Header("X-Watermark-Embed-Bits", strconv.Itoa(params.EmbedBitCount))
	c.Header("X-Watermark-Effective-Bits", strconv.Itoa(params.EffectiveBitCount))
	c.Header("X-Watermark-Capped", strconv.FormatBool(params.Capped))
	c.Header("X-Watermark-SNR", strconv.FormatFloat(snr, 'f', 2, 64))
	if minSNR != nil {
		pass := evaluate.ValidateSNR(snr, *minSNR)
		if !pass {
			log.Printf("SNR %.2f dB of %s is below the %.2f dB threshold", snr, outputFilename, *minSNR)
		}
		c.Header("X-Watermark-SNR-Pass", strconv.FormatBool(pass))
	}

	c.Data(http.StatusOK, contentType, out)
}

func (h *WatermarkHandler) DetectWatermark(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.maxUpload); err != nil {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Failed to parse form: %v", err))
		return
	}

	mode := watermark.ModeDirectA
	if s := c.PostForm("mode"); s != "" {
		m, err := watermark.ParseDetectionMode(s)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		mode = m
	}

	signal, _, _, filename, err := h.decodeUpload(c, "audio_file")
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}

	params, err := h.detectParams(c, len(signal))
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}

	key, err := h.rawBitsField(c, "secret_key")
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}

	detector, err := watermark.NewDetector(h.cfg, params, mode)
	if err != nil {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Failed to create detector: %v", err))
		return
	}
	bits, err := detector.Detect(signal, key)
	if err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to detect watermark: %v", err))
		return
	}

	log.Printf("detected %d bits from %s in mode %s", len(bits), filename, mode)

	c.JSON(http.StatusOK, models.DetectResponse{
		Success:       true,
		Message:       "Watermark bits detected",
		Mode:          mode.String(),
		DetectedBits:  bits.String(),
		EmbedBitCount: params.EmbedBitCount,
	})
}

func (h *WatermarkHandler) EvaluateWatermark(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.maxUpload); err != nil {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Failed to parse form: %v", err))
		return
	}

	host, _, _, _, err := h.decodeUpload(c, "host_file")
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	marked, _, _, _, err := h.decodeUpload(c, "watermarked_file")
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}

	original, err := h.rawBitsField(c, "watermark")
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	detected, err := h.rawBitsField(c, "detected_bits")
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}

	params, err := watermark.ComputeParameters(len(host), h.cfg)
	if err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to compute parameters: %v", err))
		return
	}
	if len(original) > params.EffectiveBitCount {
		original = original[:params.EffectiveBitCount]
	}

	report, err := evaluate.Evaluate(detected, original, h.cfg.Reps(), host, marked)
	if err != nil {
		fail(c, statusFor(err), fmt.Sprintf("Failed to evaluate: %v", err))
		return
	}

	c.JSON(http.StatusOK, models.EvaluateResponse{
		Success:   true,
		Message:   fmt.Sprintf("BER: %.2f%%, SNR: %.2f dB", report.BER, report.SNR),
		Recovered: report.Recovered.String(),
		BER:       report.BER,
		SNR:       report.SNR,
		Errors:    report.Errors,
		Bits:      report.Bits,
	})
}

// detectParams uses frame_shift/embed_nbit from the form when both are
// present and otherwise derives them from the received signal length.
func (h *WatermarkHandler) detectParams(c *gin.Context, n int) (watermark.FrameParameters, error) {
	shiftStr, nbitStr := c.PostForm("frame_shift"), c.PostForm("embed_nbit")
	if shiftStr == "" || nbitStr == "" {
		return watermark.ComputeParameters(n, h.cfg)
	}

	text := fmt.Sprintf("frame_shift=%s\nembed_nbit=%s\neffective_nbit=0\n", shiftStr, nbitStr)
	params, err := persist.ReadParams(strings.NewReader(text), h.cfg.FrameLength)
	if err != nil {
		return watermark.FrameParameters{}, err
	}
	params.EffectiveBitCount = params.EmbedBitCount / h.cfg.Reps()
	return params, nil
}

func (h *WatermarkHandler) decodeUpload(c *gin.Context, field string) ([]float64, *models.AudioMetadata, []byte, string, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return nil, nil, nil, "", &fieldError{field: field, err: errors.New("is required")}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, nil, "", fmt.Errorf("failed to read %s: %w", field, err)
	}

	samples, meta, err := h.audioDecoder.Decode(data)
	if err != nil {
		return nil, nil, nil, "", &fieldError{field: field, err: fmt.Errorf("failed to decode %s: %w", header.Filename, err)}
	}
	return samples, meta, data, header.Filename, nil
}

// rawBitsField accepts the bits as a "0101" form value or as an uploaded
// one-bit-per-line file under the same field name.
func (h *WatermarkHandler) rawBitsField(c *gin.Context, field string) (watermark.BitSequence, error) {
	if s := c.PostForm(field); s != "" {
		bits, err := watermark.ParseBitString(s)
		if err != nil {
			return nil, &fieldError{field: field, err: err}
		}
		return bits, nil
	}

	file, _, err := c.Request.FormFile(field)
	if err != nil {
		return nil, &fieldError{field: field, err: errors.New("is required")}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	bits, err := persist.ReadBits(bytes.NewReader(data))
	if err != nil {
		return nil, &fieldError{field: field, err: err}
	}
	return bits, nil
}

// watermarkField returns the per-frame watermark. "watermark_extended" is
// used as sent; "watermark" holds the original bits, which are cut to the
// effective length and repeated by the repetition factor.
func (h *WatermarkHandler) watermarkField(c *gin.Context, params watermark.FrameParameters) (watermark.BitSequence, error) {
	if hasField(c, "watermark_extended") {
		return h.rawBitsField(c, "watermark_extended")
	}

	bits, err := h.rawBitsField(c, "watermark")
	if err != nil {
		return nil, err
	}
	if len(bits) < params.EffectiveBitCount {
		return nil, &watermark.SequenceLengthMismatchError{
			Name:     "watermark",
			Expected: params.EffectiveBitCount,
			Actual:   len(bits),
		}
	}
	return bits[:params.EffectiveBitCount].Extend(h.cfg.Reps()), nil
}

func hasField(c *gin.Context, field string) bool {
	if c.PostForm(field) != "" {
		return true
	}
	form := c.Request.MultipartForm
	return form != nil && len(form.File[field]) > 0
}

type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string { return fmt.Sprintf("%s: %v", e.field, e.err) }
func (e *fieldError) Unwrap() error { return e.err }

func statusFor(err error) int {
	var (
		field        *fieldError
		unsupported  *audio.UnsupportedFormatError
		insufficient *watermark.InsufficientSignalError
		short        *watermark.ShortSignalError
		mismatch     *watermark.SequenceLengthMismatchError
		undefined    *evaluate.UndefinedSnrError
		malformedSeq *persist.MalformedSequenceError
		malformedPar *persist.MalformedParameterFileError
	)
	switch {
	case errors.As(err, &field),
		errors.As(err, &unsupported),
		errors.As(err, &insufficient),
		errors.As(err, &short),
		errors.As(err, &mismatch),
		errors.As(err, &undefined),
		errors.As(err, &malformedSeq),
		errors.As(err, &malformedPar):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, models.WatermarkResponse{
		Success: false,
		Message: message,
	})
}

package handlers

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"watermark-backend/audio"
	"watermark-backend/models"
	"watermark-backend/watermark"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	name string
	data []byte
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewWatermarkHandler(watermark.DefaultConfig(), 32).Register(r.Group("/api/v1"))
	return r
}

func post(t *testing.T, r *gin.Engine, path string, fields map[string]string, files map[string]upload) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func noiseWAV(t *testing.T, n int, seed int64) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = rng.NormFloat64() * 1000
	}
	data, err := audio.NewAudioDecoder().EncodeWAV(samples, 44100)
	require.NoError(t, err)
	return data
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestGenerateKeysDeterministic(t *testing.T) {
	r := newTestRouter()
	fields := map[string]string{"passphrase": "s3cret", "bits": "10"}

	var a, b models.KeysResponse
	w := post(t, r, "/api/v1/watermark/keys", fields, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	w = post(t, r, "/api/v1/watermark/keys", fields, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))

	assert.Equal(t, a, b)
	assert.Len(t, a.Watermark, 10)
	assert.Len(t, a.WatermarkExtended, 30)
	assert.Len(t, a.SecretKey, 30)
}

func TestGenerateKeysBadBits(t *testing.T) {
	w := post(t, newTestRouter(), "/api/v1/watermark/keys", map[string]string{"bits": "-3"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComputeParams(t *testing.T) {
	w := post(t, newTestRouter(), "/api/v1/watermark/params", nil,
		map[string]upload{"audio_file": {"host.wav", noiseWAV(t, 5*44100, 1)}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ParamsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2048, resp.FrameShift)
	assert.Equal(t, 105, resp.EmbedBitCount)
	assert.Equal(t, 35, resp.EffectiveBitCount)
	require.NotNil(t, resp.Audio)
	assert.Equal(t, 44100, resp.Audio.SampleRate)
}

func TestComputeParamsTooShort(t *testing.T) {
	w := post(t, newTestRouter(), "/api/v1/watermark/params", nil,
		map[string]upload{"audio_file": {"tiny.wav", noiseWAV(t, 4000, 1)}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmbedDetectEvaluateFlow(t *testing.T) {
	r := newTestRouter()
	host := noiseWAV(t, 5*44100, 2)

	w := post(t, r, "/api/v1/watermark/keys", map[string]string{"seed": "42", "bits": "35"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ks models.KeysResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ks))

	w = post(t, r, "/api/v1/watermark/embed",
		map[string]string{"watermark": ks.Watermark, "secret_key": ks.SecretKey},
		map[string]upload{"audio_file": {"host.wav", host}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "105", w.Header().Get("X-Watermark-Embed-Bits"))
	assert.Equal(t, "35", w.Header().Get("X-Watermark-Effective-Bits"))
	snrHeader := w.Header().Get("X-Watermark-SNR")
	assert.NotEmpty(t, snrHeader)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "host_wmed.wav")
	marked := w.Body.Bytes()

	w = post(t, r, "/api/v1/watermark/detect",
		map[string]string{"secret_key": ks.SecretKey, "mode": "signal1"},
		map[string]upload{"audio_file": {"host_wmed.wav", marked}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var det models.DetectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &det))
	assert.Equal(t, ks.WatermarkExtended, det.DetectedBits)
	assert.Equal(t, "signal1", det.Mode)

	w = post(t, r, "/api/v1/watermark/evaluate",
		map[string]string{"watermark": ks.Watermark, "detected_bits": det.DetectedBits},
		map[string]upload{
			"host_file":        {"host.wav", host},
			"watermarked_file": {"host_wmed.wav", marked},
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ev models.EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.Equal(t, 0.0, ev.BER)
	assert.Equal(t, ks.Watermark, ev.Recovered)
	assert.Greater(t, ev.SNR, 0.0)
	assert.Equal(t, strconv.FormatFloat(ev.SNR, 'f', 2, 64), snrHeader)
}

func TestDefaultKeysOnShortHost(t *testing.T) {
	r := newTestRouter()
	host := noiseWAV(t, 66150, 8)

	w := post(t, r, "/api/v1/watermark/keys", map[string]string{"seed": "9"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ks models.KeysResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ks))
	require.Len(t, ks.Watermark, 40)

	w = post(t, r, "/api/v1/watermark/embed",
		map[string]string{"watermark": ks.Watermark, "secret_key": ks.SecretKey},
		map[string]upload{"audio_file": {"short.wav", host}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "30", w.Header().Get("X-Watermark-Embed-Bits"))
	assert.Equal(t, "10", w.Header().Get("X-Watermark-Effective-Bits"))
	marked := w.Body.Bytes()

	w = post(t, r, "/api/v1/watermark/detect",
		map[string]string{"secret_key": ks.SecretKey},
		map[string]upload{"audio_file": {"short_wmed.wav", marked}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var det models.DetectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &det))
	assert.Equal(t, ks.WatermarkExtended[:30], det.DetectedBits)

	w = post(t, r, "/api/v1/watermark/evaluate",
		map[string]string{"watermark": ks.Watermark, "detected_bits": det.DetectedBits},
		map[string]upload{
			"host_file":        {"short.wav", host},
			"watermarked_file": {"short_wmed.wav", marked},
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ev models.EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.Equal(t, 0.0, ev.BER)
	assert.Equal(t, ks.Watermark[:10], ev.Recovered)
	assert.Equal(t, 10, ev.Bits)
}

func TestEmbedDefaultKeysOnCappedHost(t *testing.T) {
	r := newTestRouter()
	w := post(t, r, "/api/v1/watermark/keys", map[string]string{"seed": "10"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ks models.KeysResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ks))

	w = post(t, r, "/api/v1/watermark/embed",
		map[string]string{"watermark": ks.Watermark, "secret_key": ks.SecretKey},
		map[string]upload{"audio_file": {"host.wav", noiseWAV(t, 5*44100, 11)}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "35", w.Header().Get("X-Watermark-Effective-Bits"))
}

func TestEmbedWatermarkLengths(t *testing.T) {
	r := newTestRouter()
	host := noiseWAV(t, 5*44100, 12)
	key := strings.Repeat("10", 60)

	w := post(t, r, "/api/v1/watermark/embed",
		map[string]string{"watermark": "101", "secret_key": key},
		map[string]upload{"audio_file": {"host.wav", host}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "expected at least 35")

	w = post(t, r, "/api/v1/watermark/embed",
		map[string]string{"watermark_extended": strings.Repeat("1", 104), "secret_key": key},
		map[string]upload{"audio_file": {"host.wav", host}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "expected at least 105")

	w = post(t, r, "/api/v1/watermark/embed",
		map[string]string{"watermark_extended": strings.Repeat("01", 60), "secret_key": key},
		map[string]upload{"audio_file": {"host.wav", host}})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestEmbedSNRThreshold(t *testing.T) {
	r := newTestRouter()
	host := noiseWAV(t, 5*44100, 13)
	fields := map[string]string{
		"watermark":  strings.Repeat("1", 35),
		"secret_key": strings.Repeat("0", 105),
	}

	fields["min_snr"] = "0"
	w := post(t, r, "/api/v1/watermark/embed", fields, map[string]upload{"audio_file": {"host.wav", host}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "true", w.Header().Get("X-Watermark-SNR-Pass"))

	fields["min_snr"] = "1000"
	w = post(t, r, "/api/v1/watermark/embed", fields, map[string]upload{"audio_file": {"host.wav", host}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "false", w.Header().Get("X-Watermark-SNR-Pass"))

	fields["min_snr"] = "loud"
	w = post(t, r, "/api/v1/watermark/embed", fields, map[string]upload{"audio_file": {"host.wav", host}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDetectWithExplicitParams(t *testing.T) {
	r := newTestRouter()
	key := strings.Repeat("1", 105)
	w := post(t, r, "/api/v1/watermark/detect",
		map[string]string{"secret_key": key, "frame_shift": "2048", "embed_nbit": "105", "mode": "differential"},
		map[string]upload{"audio_file": {"x.wav", noiseWAV(t, 5*44100, 3)}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var det models.DetectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &det))
	assert.Len(t, det.DetectedBits, 105)
	assert.Equal(t, "signal2", det.Mode)
}

func TestDetectErrors(t *testing.T) {
	r := newTestRouter()
	wav := noiseWAV(t, 5*44100, 4)

	w := post(t, r, "/api/v1/watermark/detect",
		map[string]string{"secret_key": "101", "mode": "signal9"},
		map[string]upload{"audio_file": {"x.wav", wav}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, r, "/api/v1/watermark/detect",
		map[string]string{"secret_key": "101"},
		map[string]upload{"audio_file": {"x.wav", wav}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "expected at least 105")

	w = post(t, r, "/api/v1/watermark/detect",
		map[string]string{"secret_key": "10x"},
		map[string]upload{"audio_file": {"x.wav", wav}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmbedRequiresAudio(t *testing.T) {
	w := post(t, newTestRouter(), "/api/v1/watermark/embed",
		map[string]string{"watermark": "1", "secret_key": "1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "audio_file")
}

func TestEmbedRejectsUnsupportedAudio(t *testing.T) {
	w := post(t, newTestRouter(), "/api/v1/watermark/embed",
		map[string]string{"watermark": "1", "secret_key": "1"},
		map[string]upload{"audio_file": {"x.ogg", []byte("OggS not audio")}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported")
}

func TestEvaluateIdenticalSignals(t *testing.T) {
	wav := noiseWAV(t, 44100, 5)
	w := post(t, newTestRouter(), "/api/v1/watermark/evaluate",
		map[string]string{"watermark": "101", "detected_bits": "111000111"},
		map[string]upload{
			"host_file":        {"a.wav", wav},
			"watermarked_file": {"b.wav", wav},
		})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "snr undefined")
}

func TestEvaluateAcceptsBitFiles(t *testing.T) {
	host := noiseWAV(t, 44100, 6)
	marked := noiseWAV(t, 44100, 7)
	w := post(t, newTestRouter(), "/api/v1/watermark/evaluate", nil,
		map[string]upload{
			"host_file":        {"a.wav", host},
			"watermarked_file": {"b.wav", marked},
			"watermark":        {"watermark_ori.dat", []byte("1\n0\n1\n")},
			"detected_bits":    {"detected.dat", []byte("1\n1\n0\n0\n0\n1\n0\n0\n0\n")},
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ev models.EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.Equal(t, "100", ev.Recovered)
	assert.InDelta(t, 100.0/3, ev.BER, 1e-9)
}

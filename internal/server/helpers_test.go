package server

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/eanscan/internal/pipeline"
	"github.com/MeKo-Tech/eanscan/internal/ray"
	"github.com/MeKo-Tech/eanscan/internal/testutil"
	"github.com/MeKo-Tech/eanscan/internal/utils"
)

const sampleCode = "4006381333931"

// mockDecoder returns canned results and records manual rays.
type mockDecoder struct {
	mu     sync.Mutex
	res    *pipeline.Result
	err    error
	manual []*[2]utils.Point
	auto   int
}

func (m *mockDecoder) DecodeImage(ctx context.Context, _ image.Image) (*pipeline.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auto++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.res, m.err
}

func (m *mockDecoder) DecodeRay(_ context.Context, _ image.Image, p1, p2 utils.Point) (*pipeline.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manual = append(m.manual, &[2]utils.Point{p1, p2})
	return m.res, m.err
}

func sampleResult() *pipeline.Result {
	r := ray.Ray{P1: utils.Point{X: 20, Y: 100}, P2: utils.Point{X: 440, Y: 100}}
	return &pipeline.Result{
		Width:    460,
		Height:   200,
		Code:     sampleCode,
		Ray:      r,
		Attempts: []pipeline.Attempt{{Index: 0, Ray: r, Code: sampleCode}},
	}
}

func testServer(d decoder, mutate func(*Config)) *Server {
	cfg := Config{CORSOrigin: "*", MaxUploadMB: 1, TimeoutSec: 5, OverlayEnabled: true}
	if mutate != nil {
		mutate(&cfg)
	}
	return newServer(cfg, d)
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	return pngBytes(t, testutil.Uniform(120, 40, 255))
}

// newUploadRequest builds a multipart POST; a nil image omits the file part.
func newUploadRequest(t *testing.T, target string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if data != nil {
		fw, err := mw.CreateFormFile("image", "upload.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/eanscan/internal/segment"
	"github.com/MeKo-Tech/eanscan/internal/testutil"
	"github.com/MeKo-Tech/eanscan/internal/utils"
)

type recordingProgress struct {
	mu       sync.Mutex
	started  int
	progress []int
	errors   []int
	done     bool
}

func (r *recordingProgress) OnStart(total int) { r.started = total }

func (r *recordingProgress) OnProgress(done, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, done)
}

func (r *recordingProgress) OnComplete() { r.done = true }

func (r *recordingProgress) OnError(index int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, index)
}

func TestDecodeImages_OrderAndErrors(t *testing.T) {
	img, good := barcodeFixture(t)
	blank := testutil.Uniform(460, 200, 255)
	p := testPipeline(t, NewBuilder().WithMaxAttempts(2), good)

	rec := &recordingProgress{}
	var handled []int
	cfg := ParallelConfig{
		MaxWorkers:       3,
		ProgressCallback: rec,
		ErrorHandler:     func(i int, _ image.Image, _ error) { handled = append(handled, i) },
	}
	results, errs, err := p.DecodeImages(context.Background(), []image.Image{img, blank, img}, cfg)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, sampleCode, results[0].Code)
	assert.Nil(t, results[1])
	assert.Equal(t, sampleCode, results[2].Code)
	assert.NoError(t, errs[0])
	var nde *NoDecodeError
	require.ErrorAs(t, errs[1], &nde)
	assert.Len(t, nde.Attempts, 2)

	assert.Equal(t, 3, rec.started)
	assert.Equal(t, []int{1, 2, 3}, rec.progress)
	assert.Equal(t, []int{1}, rec.errors)
	assert.True(t, rec.done)
	assert.Equal(t, []int{1}, handled)

	st := CalculateParallelStats(results, errs, time.Second, 3)
	assert.Equal(t, 2, st.DecodedImages)
	assert.Equal(t, 1, st.FailedImages)
	// One attempt per decoded image plus the two spent on the blank one.
	assert.Equal(t, 4, st.TotalAttempts)
	assert.InDelta(t, 3, st.ThroughputPerSec, 1e-9)
}

func TestDecodeImages_Empty(t *testing.T) {
	p := testPipeline(t, NewBuilder())
	_, _, err := p.DecodeImages(context.Background(), nil, DefaultParallelConfig())
	require.Error(t, err)
}

func TestDecodeImages_Cancelled(t *testing.T) {
	img, good := barcodeFixture(t)
	p := testPipeline(t, NewBuilder(), good)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := p.DecodeImages(ctx, []image.Image{img, img}, ParallelConfig{MaxWorkers: 2})
	require.ErrorIs(t, err, context.Canceled)
}

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "Decode: ").WithWidth(10).WithUpdateInterval(0)

	cb.OnStart(4)
	assert.Contains(t, buf.String(), "Decode: 0/4 (0.0%)")

	buf.Reset()
	cb.OnError(1, assert.AnError)
	cb.OnProgress(2, 4)
	out := buf.String()
	assert.Contains(t, out, "[#####.....] 2/4 (50.0%)")
	assert.Contains(t, out, "failed=1")

	buf.Reset()
	cb.OnComplete()
	assert.Contains(t, buf.String(), "Decode: Completed in")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cb := NewLogProgressCallback(logger, slog.LevelInfo).WithInterval(2)

	cb.OnStart(3)
	cb.OnProgress(1, 3)
	cb.OnProgress(2, 3)
	cb.OnProgress(3, 3)
	cb.OnError(0, assert.AnError)
	cb.OnComplete()

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "Decoding progress"))
	assert.Contains(t, out, "Decoding started")
	assert.Contains(t, out, "Image failed")
	assert.Contains(t, out, "Decoding completed")
}

func TestMultiAndThrottledProgress(t *testing.T) {
	a, b := &recordingProgress{}, &recordingProgress{}
	th := NewThrottledProgressCallback(MultiProgressCallback{a, b}, time.Hour)

	th.OnStart(3)
	th.OnProgress(1, 3)
	th.OnProgress(2, 3)
	th.OnProgress(3, 3)
	th.OnComplete()

	for _, r := range []*recordingProgress{a, b} {
		assert.Equal(t, 3, r.started)
		assert.Equal(t, []int{1, 3}, r.progress)
		assert.True(t, r.done)
	}
	NoOpProgressCallback{}.OnError(0, assert.AnError)
}

func decodedResult(t *testing.T) (image.Image, *Result) {
	t.Helper()
	img, good := barcodeFixture(t)
	p := testPipeline(t, NewBuilder().WithLookup(setLookup{sampleCode: true}), good)
	p.Segmenter = fixedSegmenter{region: testRegion()}
	res, err := p.DecodeImage(context.Background(), img)
	require.NoError(t, err)
	res.Source = "sample.png"
	return img, res
}

func TestResultFormats(t *testing.T) {
	_, res := decodedResult(t)

	js, err := ToJSON(res)
	require.NoError(t, err)
	assert.Contains(t, js, `"code": "4006381333931"`)
	assert.Contains(t, js, `"known": true`)
	assert.Contains(t, js, `"corners"`)

	all, err := ToJSONResults([]*Result{res})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(all, "["))

	txt, err := ToText(res)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(txt, "4006381333931 (known)\nautonomous, 1 attempt(s)"))

	csvOut, err := ToCSV([]*Result{res, nil})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(csvOut), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "source,code,known,attempts,x1,y1,x2,y2", lines[0])
	assert.Equal(t, "sample.png,4006381333931,true,1,20.0,100.0,440.0,100.0", lines[1])

	_, err = ToJSON(nil)
	require.Error(t, err)
	_, err = ToText(nil)
	require.Error(t, err)
}


func testRegion() segment.Region {
	return segment.Region{
		Corners:  [4]utils.Point{{X: 40, Y: 40}, {X: 419, Y: 40}, {X: 419, Y: 159}, {X: 40, Y: 159}},
		Box:      utils.NewBox(40, 40, 419, 159),
		Centroid: utils.Point{X: 229.5, Y: 99.5},
		Area:     380 * 120,
	}
}

func TestRenderOverlay(t *testing.T) {
	img, res := decodedResult(t)
	opts, err := ParseOverlayOptions("#0000ff", "#00ff00")
	require.NoError(t, err)

	out := RenderOverlay(img, res, opts)
	require.NotNil(t, out)
	assert.Equal(t, img.Bounds().Size(), out.Bounds().Size())
	assert.Equal(t, color.RGBA{G: 255, A: 255}, out.RGBAAt(230, 100))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, out.RGBAAt(40, 70))
	// Untouched background.
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(5, 5))

	assert.Nil(t, RenderOverlay(nil, res, opts))
	plain := RenderOverlay(img, nil, opts)
	assert.Equal(t, color.RGBA{A: 255}, plain.RGBAAt(40, 100))
}

func TestParseOverlayOptions_Invalid(t *testing.T) {
	_, err := ParseOverlayOptions("red", "")
	require.Error(t, err)
	_, err = ParseOverlayOptions("", "#12")
	require.Error(t, err)
}

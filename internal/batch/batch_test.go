package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/eanscan/internal/pipeline"
	"github.com/MeKo-Tech/eanscan/internal/raster"
	"github.com/MeKo-Tech/eanscan/internal/ray"
	"github.com/MeKo-Tech/eanscan/internal/segment"
	"github.com/MeKo-Tech/eanscan/internal/testutil"
	"github.com/MeKo-Tech/eanscan/internal/utils"
)

const sampleCode = "4006381333931"

type wholeImage struct{}

func (wholeImage) Segment(p *raster.Plane) (segment.Region, error) {
	return segment.Region{Area: p.Width * p.Height}, nil
}

// midRay always proposes the horizontal centre line of the fixture.
type midRay struct{ r ray.Ray }

func (m midRay) Next([4]utils.Point) (ray.Ray, error) { return m.r, nil }

func testPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	_, layout, err := testutil.GenerateBarcode(testutil.DefaultBarcodeConfig())
	require.NoError(t, err)
	x1, y1, x2, y2 := layout.MidRay()

	p, err := pipeline.NewBuilder().WithSeed(3).WithMaxAttempts(2).Build()
	require.NoError(t, err)
	p.Segmenter = wholeImage{}
	p.Rays = midRay{r: ray.Ray{P1: utils.Point{X: x1, Y: y1}, P2: utils.Point{X: x2, Y: y2}}}
	return p
}

// fixtureDir writes two barcodes, one blank image and an ignored text file.
func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	img, _, err := testutil.GenerateBarcode(testutil.DefaultBarcodeConfig())
	require.NoError(t, err)
	require.NoError(t, testutil.WritePNG(filepath.Join(dir, "a.png"), img))
	require.NoError(t, testutil.WritePNG(filepath.Join(dir, "b.png"), img))
	require.NoError(t, testutil.WritePNG(filepath.Join(dir, "blank.png"), testutil.Uniform(460, 200, 255)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	return dir
}

func TestProcessBatch_Directory(t *testing.T) {
	dir := fixtureDir(t)
	overlays := filepath.Join(t.TempDir(), "ov")
	cfg := &Config{Workers: 2, OverlayDir: overlays}

	res, err := ProcessBatch(context.Background(), testPipeline(t), []string{dir}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, 2, res.WorkerCount)
	assert.Equal(t, 1, res.Failed())

	byName := map[string]Item{}
	for _, it := range res.Items {
		byName[filepath.Base(it.Path)] = it
	}
	require.NotNil(t, byName["a.png"].Result)
	assert.Equal(t, sampleCode, byName["a.png"].Result.Code)
	assert.Equal(t, byName["a.png"].Path, byName["a.png"].Result.Source)
	require.Error(t, byName["blank.png"].Err)
	assert.Contains(t, byName["blank.png"].Err.Error(), "blank.png")
	var nde *pipeline.NoDecodeError
	assert.ErrorAs(t, byName["blank.png"].Err, &nde)

	assert.FileExists(t, filepath.Join(overlays, "a_overlay.png"))
	assert.FileExists(t, filepath.Join(overlays, "b_overlay.png"))
	assert.NoFileExists(t, filepath.Join(overlays, "blank_overlay.png"))
}

func TestProcessBatch_Errors(t *testing.T) {
	p := testPipeline(t)
	_, err := ProcessBatch(context.Background(), nil, []string{"."}, nil)
	require.Error(t, err)

	_, err = ProcessBatch(context.Background(), p, []string{filepath.Join(t.TempDir(), "missing")}, nil)
	require.Error(t, err)

	_, err = ProcessBatch(context.Background(), p, []string{t.TempDir()}, nil)
	require.EqualError(t, err, "no image files found")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ProcessBatch(ctx, p, []string{fixtureDir(t)}, &Config{Workers: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessBatch_BadFiles(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("not a png"), 0o600))
	badPDF := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(badPDF, []byte("%PDF-garbage"), 0o600))
	tiny := filepath.Join(dir, "tiny.png")
	require.NoError(t, testutil.WritePNG(tiny, testutil.Uniform(10, 10, 0)))

	res, err := ProcessBatch(context.Background(), testPipeline(t), []string{dir}, &Config{Workers: 1})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	for _, it := range res.Items {
		assert.Error(t, it.Err, it.Path)
		assert.Nil(t, it.Result)
	}
	assert.Equal(t, 3, res.Failed())
}

func TestProcessBatch_Progress(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Workers: 1, ShowProgress: true, ProgressWriter: &buf}
	_, err := ProcessBatch(context.Background(), testPipeline(t), []string{fixtureDir(t)}, cfg)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Processing: ")
	assert.Contains(t, buf.String(), "3/3")

	buf.Reset()
	cfg.Quiet = true
	_, err = ProcessBatch(context.Background(), testPipeline(t), []string{fixtureDir(t)}, cfg)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestResult_OutputFormats(t *testing.T) {
	dir := fixtureDir(t)
	res, err := ProcessBatch(context.Background(), testPipeline(t), []string{dir}, &Config{Workers: 2})
	require.NoError(t, err)

	txt, err := res.FormatResults("text")
	require.NoError(t, err)
	assert.Contains(t, txt, filepath.Join(dir, "a.png")+": "+sampleCode+"\n")
	assert.Contains(t, txt, filepath.Join(dir, "blank.png")+": error: ")

	js, err := res.FormatResults("json")
	require.NoError(t, err)
	var parsed struct {
		Images []struct {
			File   string           `json:"file"`
			Result *pipeline.Result `json:"result"`
			Error  string           `json:"error"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(js), &parsed))
	require.Len(t, parsed.Images, 3)
	failed := 0
	for _, im := range parsed.Images {
		if im.Error != "" {
			failed++
			assert.Nil(t, im.Result)
		} else {
			assert.Equal(t, sampleCode, im.Result.Code)
		}
	}
	assert.Equal(t, 1, failed)

	csvOut, err := res.FormatResults("CSV")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(csvOut), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "file,page,code,known,attempts,error", lines[0])
	assert.Contains(t, csvOut, ","+sampleCode+",,1,\n")

	_, err = res.FormatResults("xml")
	require.Error(t, err)

	var out bytes.Buffer
	require.NoError(t, res.SaveResults(&out, "text", "", false))
	assert.Equal(t, txt, out.String())

	out.Reset()
	file := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, res.SaveResults(&out, "json", file, false))
	assert.Contains(t, out.String(), "Results written to")
	written, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, js, string(written))

	out.Reset()
	res.PrintStats(&out)
	assert.Contains(t, out.String(), "Total images: 3")
	assert.Contains(t, out.String(), "Decoded: 2")
	assert.Contains(t, out.String(), "Failed: 1")
	assert.Contains(t, out.String(), "Attempts: 4")
}

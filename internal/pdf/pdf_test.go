package pdf

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/eanscan/internal/testutil"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name      string
		pageRange string
		want      []int
		wantErr   bool
	}{
		{name: "empty", pageRange: "", want: nil},
		{name: "single", pageRange: "1", want: []int{1}},
		{name: "list", pageRange: "1,3,5", want: []int{1, 3, 5}},
		{name: "range", pageRange: "1-5", want: []int{1, 2, 3, 4, 5}},
		{name: "mixed", pageRange: "1,3-5,7", want: []int{1, 3, 4, 5, 7}},
		{name: "spaces", pageRange: " 1 - 3 , 5 ", want: []int{1, 2, 3, 5}},
		{name: "word", pageRange: "abc", wantErr: true},
		{name: "double dash", pageRange: "1-2-3", wantErr: true},
		{name: "reversed", pageRange: "5-1", wantErr: true},
		{name: "zero", pageRange: "0", wantErr: true},
		{name: "bad end", pageRange: "1-xyz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageRange(tt.pageRange)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     int
		wantErr  bool
	}{
		{filename: "invoice_1_Im0.png", want: 1},
		{filename: "scan_2024_12_Im3.jpg", want: 12},
		{filename: "page_10_image_2.jpg", want: 10},
		{filename: "image_1.png", wantErr: true},
		{filename: "doc_x_Im0.png", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := parsePageFromFilename(tt.filename)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectExtractedImages(t *testing.T) {
	dir := t.TempDir()
	img := testutil.Uniform(12, 8, 200)
	for _, name := range []string{"doc_2_Im0.png", "doc_1_Im0.png", "doc_2_Im1.png"} {
		require.NoError(t, testutil.WritePNG(filepath.Join(dir, name), img))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc_3_Im0.png"), []byte("not a png"), 0o600))

	got, err := collectExtractedImages(dir)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 2}, []int{got[0].Page, got[1].Page, got[2].Page})
	assert.Equal(t, []int{0, 0, 1}, []int{got[0].Index, got[1].Index, got[2].Index})
	assert.Equal(t, image.Pt(12, 8), got[0].Image.Bounds().Size())
}

func TestExtractImages_Errors(t *testing.T) {
	_, err := ExtractImages("/non/existent/file.pdf", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to extract images from PDF")

	_, err = ExtractImages("dummy.pdf", "invalid-range")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page range")
}

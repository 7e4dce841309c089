package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/eanscan/internal/pipeline"
	"github.com/MeKo-Tech/eanscan/internal/utils"
)

func TestDebugBase(t *testing.T) {
	assert.Equal(t, "sample", debugBase("images/sample.png"))
	assert.Equal(t, "codes_p2", debugBase("scans/codes.pdf#2"))
	assert.Equal(t, "noext", debugBase("noext"))
}

func TestDecode_DebugDir(t *testing.T) {
	dir := isolate(t)
	img := writeFixture(t, dir)
	debug := filepath.Join(dir, "debug")

	_, _, err := run(t, "decode", img, "--ray", sampleRay, "--debug-dir", debug)
	require.NoError(t, err)

	for _, suffix := range []string{"_coherence.png", "_incoherence.png", "_mask.png"} {
		path := filepath.Join(debug, "sample"+suffix)
		loaded, _, err := utils.LoadImage(path)
		require.NoError(t, err, path)
		assert.Equal(t, 460, loaded.Bounds().Dx())
	}

	data, err := os.ReadFile(filepath.Join(debug, "sample_attempts.json"))
	require.NoError(t, err)
	var attempts []pipeline.Attempt
	require.NoError(t, json.Unmarshal(data, &attempts))
	require.Len(t, attempts, 1)
	assert.Equal(t, sampleCode, attempts[0].Code)
	require.NotNil(t, attempts[0].Trace)
	assert.Positive(t, attempts[0].Trace.Unit)
}

func TestAttemptsOf(t *testing.T) {
	res := &pipeline.Result{Attempts: make([]pipeline.Attempt, 2)}
	assert.Len(t, attemptsOf(res, nil), 2)
	nde := &pipeline.NoDecodeError{Attempts: make([]pipeline.Attempt, 3)}
	assert.Len(t, attemptsOf(nil, nde), 3)
	assert.Nil(t, attemptsOf(nil, assert.AnError))
}

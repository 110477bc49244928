package notify

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	require.NoError(t, w.Close())
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestPublishStdoutAndReadStdout_RoundTrip(t *testing.T) {
	out := captureStdout(t, func() {
		require.NoError(t, PublishStdout("worker ready", LevelInfo))
	})

	line := out[:len(out)-1] // trim trailing newline from fmt.Println
	message, level, ok := ReadStdout(line)
	require.True(t, ok)
	assert.Equal(t, "worker ready", message)
	assert.Equal(t, LevelInfo, level)
}

func TestReadStdout_RejectsOrdinaryLogLines(t *testing.T) {
	_, _, ok := ReadStdout(`{"level":"info","message":"plain zerolog line"}`)
	assert.False(t, ok)
}

func TestReadStdout_RejectsMalformedPayload(t *testing.T) {
	_, _, ok := ReadStdout(stdoutPrefix + "not json")
	assert.False(t, ok)
}

func TestNewBus_RejectsEmptyBrokers(t *testing.T) {
	_, err := NewBus("  ", "modelmesh.membership")
	assert.Error(t, err)
}

func TestNewBus_ParsesCommaSeparatedBrokers(t *testing.T) {
	bus, err := NewBus("broker1:9092, broker2:9092", "modelmesh.membership")
	require.NoError(t, err)
	require.NotNil(t, bus)
	assert.NoError(t, bus.Close())
}

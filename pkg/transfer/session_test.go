package transfer

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusPending, "pending"},
		{StatusActive, "active"},
		{StatusComplete, "complete"},
		{StatusPartial, "partial"},
		{StatusFailed, "failed"},
		{Status(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.status.String())
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
	assert.True(t, StatusComplete.IsTerminal())
	assert.True(t, StatusPartial.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession(ChannelSegmented, 42)
	assert.Equal(t, StatusPending, s.Status)
	assert.Len(t, s.ID, 36)
	assert.Len(t, s.ShortID(), 8)

	s.Begin()
	assert.Equal(t, StatusActive, s.Status)
	assert.False(t, s.Start.IsZero())

	s.Finish(StatusComplete, nil)
	assert.Equal(t, StatusComplete, s.Status)
	assert.False(t, s.End.Before(s.Start))

	// Terminal sessions stay put.
	s.Fail(ErrConnectionClosed)
	assert.Equal(t, StatusComplete, s.Status)
	assert.NoError(t, s.Err)
}

func TestSession_FailBeforeBegin(t *testing.T) {
	s := NewSession(ChannelBulk, 10)
	s.Fail(ErrConnectionClosed)
	assert.Equal(t, StatusFailed, s.Status)
	assert.Equal(t, s.Start, s.End)
	assert.ErrorIs(t, s.Err, ErrConnectionClosed)
}

func TestSession_JSONUsesNames(t *testing.T) {
	s := NewSession(ChannelSegmented, 42)
	s.Finish(StatusPartial, nil)

	b, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "segmented", decoded["channel"])
	assert.Equal(t, "partial", decoded["status"])
}

func TestSessionsAreIndependent(t *testing.T) {
	a := NewSession(ChannelBulk, 10)
	b := NewSession(ChannelBulk, 10)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPatternReader(t *testing.T) {
	for _, size := range []uint64{0, 1, 61, 62, 63, 1003, 100000} {
		viaRead, err := io.ReadAll(io.LimitReader(newPatternReader(size, 100), int64(size)+10))
		require.NoError(t, err)
		require.Len(t, viaRead, int(size))

		var viaWriteTo bytes.Buffer
		n, err := newPatternReader(size, 100).WriteTo(&viaWriteTo)
		require.NoError(t, err)
		assert.Equal(t, int64(size), n)
		assert.Equal(t, viaRead, viaWriteTo.Bytes())

		if size >= 62 {
			assert.Equal(t, patternAlphabet, string(viaRead[:62]))
		}
	}
}

func TestPatternBlockContinuesAcrossOffsets(t *testing.T) {
	block := patternBlock(10)
	assert.Zero(t, len(block)%len(patternAlphabet))
	assert.True(t, strings.HasPrefix(string(block), patternAlphabet[:10]))
}

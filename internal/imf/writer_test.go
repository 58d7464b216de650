package imf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteType0HasNoLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	s := Song{Type: Type0, Ticks: DefaultTicksType0, Commands: []Command{{Reg: 0xB0, Value: 0x20, Delay: 10}}}
	truncated, err := Write(&buf, s)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Equal(t, []byte{0xB0, 0x20, 10, 0}, buf.Bytes())
}

func TestWriteType1HasLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	s := Song{Type: Type1, Ticks: DefaultTicksType1, Commands: []Command{{Reg: 0xB0, Value: 0x20, Delay: 10}}}
	truncated, err := Write(&buf, s)
	require.NoError(t, err)
	assert.False(t, truncated)
	data := buf.Bytes()
	require.Len(t, data, 2+4)
	assert.Equal(t, byte(4), data[0])
	assert.Equal(t, byte(0), data[1])
}

func TestWriteType1TruncatesAtCommandLimit(t *testing.T) {
	commands := make([]Command, maxType1Commands+10)
	var buf bytes.Buffer
	s := Song{Type: Type1, Ticks: DefaultTicksType1, Commands: commands}
	truncated, err := Write(&buf, s)
	require.NoError(t, err)
	assert.True(t, truncated)
}

func TestWriteType0NeverTruncates(t *testing.T) {
	commands := make([]Command, maxType1Commands+10)
	var buf bytes.Buffer
	s := Song{Type: Type0, Ticks: DefaultTicksType0, Commands: commands}
	truncated, err := Write(&buf, s)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Equal(t, len(commands)*4, buf.Len())
}

func TestWriteRejectsInvalidTicks(t *testing.T) {
	var buf bytes.Buffer
	s := Song{Type: Type0, Ticks: 123}
	_, err := Write(&buf, s)
	assert.Error(t, err)
}

func TestWriteAppendsTagWhenMetadataSet(t *testing.T) {
	var buf bytes.Buffer
	s := Song{Type: Type0, Ticks: DefaultTicksType0, Title: "Song"}
	_, err := Write(&buf, s)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Song")
	assert.Contains(t, buf.String(), "\x1a")
}

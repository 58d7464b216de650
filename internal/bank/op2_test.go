package bank

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"midi2imf/internal/opl"
)

// buildOP2 constructs a minimal, well-formed OP2 bank buffer with every
// entry zeroed except the one at index, which gets a recognizable name and
// modulator output level so tests can assert it round-tripped.
func buildOP2(index int, name string) []byte {
	buf := make([]byte, op2NameStart+op2EntryCount*op2NameSize)
	copy(buf, op2Signature)

	entryOff := op2EntryStart + index*op2EntrySize
	buf[entryOff] = 0x00 // flags lo
	buf[entryOff+1] = 0x00
	buf[entryOff+2] = 0x80 // fine tuning
	buf[entryOff+3] = 60   // fixed note
	voice0 := entryOff + 4
	buf[voice0+5] = 0x2A // modulator output level

	nameOff := op2NameStart + index*op2NameSize
	copy(buf[nameOff:], name)
	return buf
}

func TestLoadOP2MelodicEntry(t *testing.T) {
	data := buildOP2(3, "test patch")
	cat := New(nil)
	require.NoError(t, LoadOP2(bytes.NewReader(data), cat))

	inst, ok := cat.Get(ID{Kind: opl.Melodic, Bank: 0, Program: 3})
	require.True(t, ok)
	require.Equal(t, "test patch", inst.Name)
	require.Equal(t, byte(0x2A), inst.Modulator[0].KSLOutput)
}

func TestLoadOP2PercussionEntry(t *testing.T) {
	data := buildOP2(op2PercussionStart+2, "perc patch") // program index 130 -> note 37
	cat := New(nil)
	require.NoError(t, LoadOP2(bytes.NewReader(data), cat))

	inst, ok := cat.Get(ID{Kind: opl.Percussion, Bank: 0, Program: 37})
	require.True(t, ok)
	require.Equal(t, "perc patch", inst.Name)
}

func TestLoadOP2RejectsBadSignature(t *testing.T) {
	data := buildOP2(0, "x")
	copy(data, "NOTVALID")
	cat := New(nil)
	require.Error(t, LoadOP2(bytes.NewReader(data), cat))
}

package bank

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midi2imf/internal/opl"
)

// buildWOPLEntry returns one 62-byte (v1/v2) WOPL instrument entry with the
// given name and flags byte; all other fields are zeroed.
func buildWOPLEntry(name string, flags byte) []byte {
	entry := make([]byte, woplEntrySizeV1V2)
	copy(entry, name)
	entry[39] = flags
	return entry
}

// buildWOPLV1 assembles a version-1 WOPL buffer (no bank-meta tables) whose
// melodic bank is fully populated with blank entries, except for the entries
// supplied in melodic (by program number). If perc is non-nil, the
// percussion bank is likewise populated, with perc entries overriding blanks.
func buildWOPLV1(melodic, perc map[int][]byte) []byte {
	header := make([]byte, woplHeaderSize)
	copy(header, woplSignature)
	header[11], header[12] = 1, 0 // version = 1 (little-endian)

	blank := buildWOPLEntry("", woplFlagIsBlank)

	buf := append([]byte{}, header...)
	maxMelodic := 0
	for program := range melodic {
		if program+1 > maxMelodic {
			maxMelodic = program + 1
		}
	}
	for program := 0; program < maxMelodic; program++ {
		if e, ok := melodic[program]; ok {
			buf = append(buf, e...)
		} else {
			buf = append(buf, blank...)
		}
	}
	if perc == nil {
		return buf
	}
	// Pad the rest of the melodic bank with blanks so the percussion bank
	// starts at the expected offset.
	for program := maxMelodic; program < woplInstrumentsPerBank; program++ {
		buf = append(buf, blank...)
	}
	maxPerc := 0
	for program := range perc {
		if program+1 > maxPerc {
			maxPerc = program + 1
		}
	}
	for program := 0; program < maxPerc; program++ {
		if e, ok := perc[program]; ok {
			buf = append(buf, e...)
		} else {
			buf = append(buf, blank...)
		}
	}
	return buf
}

func TestWOPLMelodicEntryDoesNotUseGivenNote(t *testing.T) {
	entry := buildWOPLEntry("lead", woplFlag2Op)
	entry[38] = 60 // given note byte set, but this is a melodic entry
	data := buildWOPLV1(map[int][]byte{0: entry}, nil)

	cat := New(nil)
	require.NoError(t, LoadWOPL(bytes.NewReader(data), cat))

	inst, ok := cat.Get(ID{Kind: opl.Melodic, Bank: 0, Program: 0})
	require.True(t, ok)
	assert.Equal(t, "lead", inst.Name)
	assert.False(t, inst.UseGivenNote)
}

func TestWOPLPercussionEntryUsesGivenNote(t *testing.T) {
	entry := buildWOPLEntry("kick", woplFlag2Op)
	entry[38] = 36
	data := buildWOPLV1(nil, map[int][]byte{0: entry})

	cat := New(nil)
	require.NoError(t, LoadWOPL(bytes.NewReader(data), cat))

	inst, ok := cat.Get(ID{Kind: opl.Percussion, Bank: 0, Program: 0})
	require.True(t, ok)
	assert.Equal(t, "kick", inst.Name)
	assert.True(t, inst.UseGivenNote)
}

func TestWOPLSkipsBlankEntryEvenWithStaleName(t *testing.T) {
	entry := buildWOPLEntry("stale leftover name", woplFlagIsBlank)
	data := buildWOPLV1(map[int][]byte{0: entry}, nil)

	cat := New(nil)
	require.NoError(t, LoadWOPL(bytes.NewReader(data), cat))

	_, ok := cat.Get(ID{Kind: opl.Melodic, Bank: 0, Program: 0})
	assert.False(t, ok)
}

func TestWOPLSkipsRhythmModeEntry(t *testing.T) {
	entry := buildWOPLEntry("bass drum", 0x08) // within woplFlagRhythmMask
	data := buildWOPLV1(map[int][]byte{0: entry}, nil)

	cat := New(nil)
	require.NoError(t, LoadWOPL(bytes.NewReader(data), cat))

	_, ok := cat.Get(ID{Kind: opl.Melodic, Bank: 0, Program: 0})
	assert.False(t, ok)
}

func TestWOPLSkipsTrue4OpWithoutPseudo(t *testing.T) {
	entry := buildWOPLEntry("organ", woplFlag4Op)
	data := buildWOPLV1(map[int][]byte{0: entry}, nil)

	cat := New(nil)
	require.NoError(t, LoadWOPL(bytes.NewReader(data), cat))

	_, ok := cat.Get(ID{Kind: opl.Melodic, Bank: 0, Program: 0})
	assert.False(t, ok)
}

func TestWOPLPseudo4OpEnablesSecondVoice(t *testing.T) {
	entry := buildWOPLEntry("strings", woplFlag4Op|woplFlagPseudo4Op)
	data := buildWOPLV1(map[int][]byte{0: entry}, nil)

	cat := New(nil)
	require.NoError(t, LoadWOPL(bytes.NewReader(data), cat))

	inst, ok := cat.Get(ID{Kind: opl.Melodic, Bank: 0, Program: 0})
	require.True(t, ok)
	assert.True(t, inst.UseSecondaryVoice)
}

func TestWOPLRejectsBadSignature(t *testing.T) {
	data := buildWOPLV1(map[int][]byte{0: buildWOPLEntry("x", woplFlag2Op)}, nil)
	copy(data, "NOTVALID")

	cat := New(nil)
	require.Error(t, LoadWOPL(bytes.NewReader(data), cat))
}

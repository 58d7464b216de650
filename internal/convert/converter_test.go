package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midi2imf/internal/bank"
	"midi2imf/internal/engine"
	"midi2imf/internal/opl"
)

func testCatalog() *bank.Catalog {
	cat := bank.New(nil)
	inst := opl.NewInstrument("test", 1)
	inst.Carrier[0].SetRegs(0, 0x10, 0, 0, 0)
	inst.Modulator[0].SetRegs(0, 0x10, 0, 0, 0)
	cat.Add(bank.ID{Kind: opl.Melodic, Bank: 0, Program: 0}, inst)
	return cat
}

func TestNoteOnEmitsSetupAndFrequencyCommands(t *testing.T) {
	c := New(testCatalog(), 560, nil)
	ch := engine.NewChannelInfo(0)

	c.OnNoteOn(0, ch, 60, 100)

	var sawFreq, sawBlockKeyOn bool
	for _, cmd := range c.Commands() {
		if cmd.Reg&0xf0 == opl.RegFreq {
			sawFreq = true
		}
		if cmd.Reg&0xf0 == opl.RegBlock && cmd.Value&opl.KeyOnMask != 0 {
			sawBlockKeyOn = true
		}
	}
	assert.True(t, sawFreq)
	assert.True(t, sawBlockKeyOn)
}

func TestNoteOffClearsKeyOnBit(t *testing.T) {
	c := New(testCatalog(), 560, nil)
	ch := engine.NewChannelInfo(0)

	c.OnNoteOn(0, ch, 60, 100)
	c.OnNoteOff(1, ch, 60)

	var last *uint8
	for i, cmd := range c.Commands() {
		if cmd.Reg&0xf0 == opl.RegBlock {
			v := cmd.Value
			last = &v
			_ = i
		}
	}
	require.NotNil(t, last)
	assert.Equal(t, byte(0), *last&opl.KeyOnMask)
}

func TestNoteOffWithNoActiveNoteIsIgnoredNotPanicked(t *testing.T) {
	c := New(testCatalog(), 560, nil)
	ch := engine.NewChannelInfo(0)
	assert.NotPanics(t, func() {
		c.OnNoteOff(0, ch, 60)
	})
}

func TestMissingInstrumentDropsNoteSilently(t *testing.T) {
	c := New(bank.New(nil), 560, nil)
	ch := engine.NewChannelInfo(0)
	before := len(c.Commands())
	c.OnNoteOn(0, ch, 60, 100)
	assert.Equal(t, before, len(c.Commands()))
}

func TestVoiceAllocationStealsWhenAllChannelsBusy(t *testing.T) {
	c := New(testCatalog(), 560, nil)
	ch := engine.NewChannelInfo(0)
	for note := byte(40); note < 40+byte(opl.Channels); note++ {
		c.OnNoteOn(0, ch, note, 100)
	}
	// All 9 OPL channels are now busy. The 10th note must steal one and emit
	// its frequency/key-on writes rather than being dropped for lack of
	// capacity.
	before := len(c.Commands())
	c.OnNoteOn(0, ch, 40+byte(opl.Channels), 100)
	assert.Greater(t, len(c.Commands()), before)
}

func TestDelayAccumulatesOnLastCommand(t *testing.T) {
	c := New(testCatalog(), 560, nil)
	ch := engine.NewChannelInfo(0)
	c.OnNoteOn(0, ch, 60, 100)
	c.OnNoteOff(1, ch, 60) // one beat later at 120 BPM default = 0.5s = 280 ticks at 560/s

	var totalDelay uint32
	for _, cmd := range c.Commands() {
		totalDelay += uint32(cmd.Delay)
	}
	assert.Greater(t, totalDelay, uint32(0))
}

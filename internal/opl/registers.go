// Package opl models the Yamaha OPL2/OPL3 register space: operator/channel
// addressing, the block/F-number note table, and the packed-byte instrument
// records loaded from DMX OP2 and WOPL3 bank files.
package opl

// Channels is the number of melodic OPL channels this module targets.
const Channels = 9

// Modulators holds the operator offset for each channel's modulator operator.
var Modulators = [Channels]byte{0, 1, 2, 8, 9, 10, 16, 17, 18}

// Carriers holds the operator offset for each channel's carrier operator.
var Carriers = func() [Channels]byte {
	var c [Channels]byte
	for i, m := range Modulators {
		c[i] = m + 3
	}
	return c
}()

// Register base addresses. High nibble selects the class; for per-operator
// registers the low nibble plus the channel's operator offset selects the
// target operator, and for per-channel registers the low nibble is the OPL
// channel number.
const (
	RegTest            = 0x01 // chip-wide
	RegTimer1Count     = 0x02 // chip-wide
	RegTimer2Count     = 0x03 // chip-wide
	RegIRQReset        = 0x04 // chip-wide
	RegWaveformEnable  = 0x08 // chip-wide: CSW / note-select (keyboard split); the waveform-select enable bit is bit 5 of register 0x01
	RegVibrato         = 0x20 // per-operator: tremolo|vibrato|sustain|KSR|freq-mult
	RegVolume          = 0x40 // per-operator: KSL|output-level
	RegAttackDecay     = 0x60 // per-operator: attack|decay
	RegSustainRelease  = 0x80 // per-operator: sustain-level|release
	RegFreq            = 0xA0 // per-channel: F-number low 8 bits
	RegBlock           = 0xB0 // per-channel: key-on|block|F-num high 2 bits
	RegDrums           = 0xBD // chip-wide: percussion/tremolo/vibrato flags
	RegFeedback        = 0xC0 // per-channel: feedback|connection
	RegWaveformSelect  = 0xE0 // per-operator: waveform-select
	KeyOnMask          = 0x20
	KeyOffMask         = 0x00
)

// BlockFreqTable maps MIDI note number directly to (block, fnum), where
// fnum = freq * 2^(20-block) / 49716. The table is calibrated so F# sits near
// the top of one block and G near the middle of the next; the pitch-bend
// routine in the converter depends on that layout.
var BlockFreqTable = [103][2]int{
	{0, 345}, {0, 365}, {0, 387}, {0, 410}, {0, 435}, {0, 460},
	{0, 488}, {0, 517}, {0, 547}, {0, 580}, {0, 615}, {0, 651},
	{0, 690}, {0, 731}, {0, 774}, {0, 820}, {0, 869}, {0, 921},
	{0, 975}, {1, 517}, {1, 547}, {1, 580}, {1, 615}, {1, 651},
	{1, 690}, {1, 731}, {1, 774}, {1, 820}, {1, 869}, {1, 921},
	{1, 975}, {2, 517}, {2, 547}, {2, 580}, {2, 615}, {2, 651},
	{2, 690}, {2, 731}, {2, 774}, {2, 820}, {2, 869}, {2, 921},
	{2, 975}, {3, 517}, {3, 547}, {3, 580}, {3, 615}, {3, 651},
	{3, 690}, {3, 731}, {3, 774}, {3, 820}, {3, 869}, {3, 921},
	{3, 975}, {4, 517}, {4, 547}, {4, 580}, {4, 615}, {4, 651},
	{4, 690}, {4, 731}, {4, 774}, {4, 820}, {4, 869}, {4, 921},
	{4, 975}, {5, 517}, {5, 547}, {5, 580}, {5, 615}, {5, 651},
	{5, 690}, {5, 731}, {5, 774}, {5, 820}, {5, 869}, {5, 921},
	{5, 975}, {6, 517}, {6, 547}, {6, 580}, {6, 615}, {6, 651},
	{6, 690}, {6, 731}, {6, 774}, {6, 820}, {6, 869}, {6, 921},
	{6, 975}, {7, 517}, {7, 547}, {7, 580}, {7, 615}, {7, 651},
	{7, 690}, {7, 731}, {7, 774}, {7, 820}, {7, 869}, {7, 921},
	{7, 975},
}

// BlockFreq returns the (block, fnum) pair for a MIDI note number, folding
// notes outside the table's range down/up by octaves (12 semitones) until
// they land inside it.
func BlockFreq(note int) (block, fnum int) {
	for note < 0 {
		note += 12
	}
	for note >= len(BlockFreqTable) {
		note -= 12
	}
	e := BlockFreqTable[note]
	return e[0], e[1]
}

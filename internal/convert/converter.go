// Package convert implements the MIDI/MUS-to-OPL conversion at the heart of
// this module: voice allocation across the 9 OPL channels, instrument setup
// from the loaded bank, volume/brightness scaling, pitch-bend-to-block/fnum
// translation, and register-diffed command emission with tick-accurate
// delays.
package convert

import (
	"fmt"
	"math"

	"midi2imf/internal/bank"
	"midi2imf/internal/engine"
	"midi2imf/internal/imf"
	"midi2imf/internal/opl"
	"midi2imf/internal/song"
)

// Logger receives diagnostic lines at various verbosity levels. A nil
// Logger is treated as a no-op.
type Logger interface {
	Warnf(format string, args ...any)
	Debugf(format string, args ...any)
}

// activeNote tracks one sounding note's allocation onto an OPL channel.
type activeNote struct {
	midiChannel int
	note        byte
	imfChannel  int
	instrument  bank.ID
	voice       int
	block, fnum int
}

// Converter consumes the engine's resolved event stream and accumulates an
// IMF command stream.
type Converter struct {
	Catalog *bank.Catalog
	Ticks   int
	Log     Logger

	commands     []imf.Command
	shadow       [256]byte
	shadowKnown  [256]bool
	pendingTicks uint32
	lastTime     float64
	bpm          float64

	channelBusy [opl.Channels]bool
	channelLRU  [opl.Channels]int
	lruCounter  int
	active      map[int]*activeNote // keyed by midiChannel<<8 | note

	maxCommands int // 0 = unlimited
}

// New returns a Converter ready to accept engine events. ticksPerSecond
// should be one of imf.DefaultTicksType0/Type1.
func New(cat *bank.Catalog, ticksPerSecond int, log Logger) *Converter {
	c := &Converter{
		Catalog: cat,
		Ticks:   ticksPerSecond,
		Log:     log,
		bpm:     120,
		active:  make(map[int]*activeNote),
	}
	c.commands = append(c.commands,
		imf.Command{Reg: 0x00, Value: 0x00},
		imf.Command{Reg: opl.RegDrums, Value: 0x00},
		imf.Command{Reg: 0x08, Value: 0x00}, // disable CSW / keyboard split
	)
	return c
}

func activeKey(midiChannel int, note byte) int {
	return midiChannel<<8 | int(note)
}

// Commands returns the accumulated command stream. The Converter must not
// be used after this is called.
func (c *Converter) Commands() []imf.Command {
	return c.commands
}

// OnTempoChange implements engine.Converter.
func (c *Converter) OnTempoChange(time, bpm float64) {
	c.advance(time)
	if bpm <= 0 {
		c.warnf("ignoring non-positive tempo %f at time %f", bpm, time)
		return
	}
	c.bpm = bpm
}

// OnNoteOn implements engine.Converter.
func (c *Converter) OnNoteOn(time float64, channel *engine.ChannelInfo, note, velocity byte) {
	c.advance(time)

	id := c.resolveInstrument(channel, note)
	inst, ok := c.Catalog.Get(id)
	if !ok {
		return
	}

	imfChannel, ok := c.allocateChannel()
	if !ok {
		c.warnf("no free OPL channel for note %d on MIDI channel %d at time %f, dropping", note, channel.Channel, time)
		return
	}

	playedNote := note
	if inst.UseGivenNote {
		playedNote = inst.GivenNote
	}

	voice := 0
	an := &activeNote{midiChannel: channel.Channel, note: note, imfChannel: imfChannel, instrument: id, voice: voice}
	c.active[activeKey(channel.Channel, note)] = an

	for _, cmd := range inst.SetupRegs(imfChannel, voice) {
		c.writeCommand(cmd.Reg, cmd.Value)
	}
	c.writeVolume(imfChannel, inst, voice, channel, velocity)

	block, fnum := c.noteFrequency(inst, voice, playedNote, channel.PitchBend, channel.PitchBendSensitivity)
	an.block, an.fnum = block, fnum
	c.writeCommand(opl.RegFreq|byte(imfChannel), byte(fnum&0xff))
	c.writeCommand(opl.RegBlock|byte(imfChannel), opl.KeyOnMask|byte(block<<2)|byte((fnum>>8)&0x3))
}

// OnNoteOff implements engine.Converter.
func (c *Converter) OnNoteOff(time float64, channel *engine.ChannelInfo, note byte) {
	c.advance(time)

	key := activeKey(channel.Channel, note)
	an, ok := c.active[key]
	if !ok {
		c.warnf("note-off for note %d on MIDI channel %d with no matching note-on at time %f, ignoring", note, channel.Channel, time)
		return
	}
	delete(c.active, key)
	c.channelBusy[an.imfChannel] = false

	c.writeCommand(opl.RegBlock|byte(an.imfChannel), opl.KeyOffMask|byte(an.block<<2)|byte((an.fnum>>8)&0x3))
}

// OnPitchBend implements engine.Converter.
func (c *Converter) OnPitchBend(time float64, channel *engine.ChannelInfo) {
	c.advance(time)
	if channel.IsPercussion() {
		return
	}
	for _, an := range c.active {
		if an.midiChannel != channel.Channel {
			continue
		}
		inst, ok := c.Catalog.Get(an.instrument)
		if !ok {
			continue
		}
		playedNote := an.note
		if inst.UseGivenNote {
			playedNote = inst.GivenNote
		}
		block, fnum := c.noteFrequency(inst, an.voice, playedNote, channel.PitchBend, channel.PitchBendSensitivity)
		an.block, an.fnum = block, fnum
		c.writeCommand(opl.RegFreq|byte(an.imfChannel), byte(fnum&0xff))
		c.writeCommand(opl.RegBlock|byte(an.imfChannel), opl.KeyOnMask|byte(block<<2)|byte((fnum>>8)&0x3))
	}
}

// OnControllerChange implements engine.Converter. It writes no registers:
// the engine has already folded the change into channel state, so a new
// volume, expression or brightness value takes effect at the next note-on,
// and notes already sounding keep the volume they started with.
func (c *Converter) OnControllerChange(time float64, channel *engine.ChannelInfo, controller song.ControllerType, value byte) {
	c.advance(time)
}

// OnProgramChange implements engine.Converter.
func (c *Converter) OnProgramChange(time float64, channel *engine.ChannelInfo) {
	c.advance(time)
}

// OnEndOfSong implements engine.Converter. Per the dangling-state rule, it
// applies only the final delay; it does not fabricate key-offs for notes
// still active at the end of the song. Any such notes, and any OPL channel
// still marked busy, are only logged.
func (c *Converter) OnEndOfSong(time float64) {
	c.advance(time)
	c.flushDelay()

	for _, an := range c.active {
		c.warnf("note %d on MIDI channel %d still active at end of song (OPL channel %d)", an.note, an.midiChannel, an.imfChannel)
	}
	for i, busy := range c.channelBusy {
		if busy {
			c.warnf("OPL channel %d still marked busy at end of song", i)
		}
	}
}

func (c *Converter) resolveInstrument(channel *engine.ChannelInfo, note byte) bank.ID {
	if channel.IsPercussion() {
		return bank.ID{Kind: opl.Percussion, Bank: channel.DrumBank(), Program: int(note)}
	}
	return bank.ID{Kind: opl.Melodic, Bank: int(channel.BankMSB), Program: channel.Program}
}

// noteFrequency computes the (block, fnum) pair for a note, folded by the
// instrument's per-voice note offset and the channel's current pitch bend
// scaled by its pitch-bend sensitivity in semitones.
func (c *Converter) noteFrequency(inst opl.Instrument, voice int, note byte, bend, sensitivity float64) (block, fnum int) {
	adjusted := int(note) + int(inst.NoteOffset[voice])
	semitoneBend := bend * sensitivity
	if semitoneBend == 0 {
		return opl.BlockFreq(clampNote(adjusted))
	}

	// Interpolate from the un-bent note's own (block, fnum) to the note
	// semitones away in the bend's direction, weighted by how far into that
	// semitone the bend actually reaches. Both fnums are first brought into
	// the higher of the two blocks, so they are comparable and the result
	// stays within 10 bits: a downward target is divided into the origin
	// note's block, and for an upward target in a higher block the origin
	// fnum is divided into that block, which becomes the reported block.
	var semitones int
	if semitoneBend > 0 {
		semitones = int(math.Ceil(semitoneBend))
	} else {
		semitones = int(math.Floor(semitoneBend))
	}
	otherNote := clampNote(adjusted + semitones)

	block, fnum = opl.BlockFreq(clampNote(adjusted))
	otherBlock, otherFnum := opl.BlockFreq(otherNote)
	freq := float64(fnum)
	otherFreq := float64(otherFnum)
	if otherBlock < block {
		otherFreq /= math.Pow(2, float64(block-otherBlock))
	} else if otherBlock > block {
		freq /= math.Pow(2, float64(otherBlock-block))
		block = otherBlock
	}

	frac := semitoneBend / float64(semitones)
	freq += (otherFreq - freq) * frac
	return block, int(math.Round(freq))
}

func clampNote(note int) int {
	if note < 0 {
		return 0
	}
	if note > 127 {
		return 127
	}
	return note
}

// volumeTable is DMX's 128-entry logarithmic volume curve, mapping a linear
// 0..127 value to the 0..63 volume scale (higher is louder) that
// scaleOutputLevel takes.
var volumeTable = [128]byte{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4,
	5, 5, 5, 5, 6, 6, 6, 6, 7, 7, 7, 7, 8, 8, 8, 8,
	9, 9, 9, 9, 10, 10, 10, 10, 11, 11, 11, 11, 12, 12, 12, 12,
	13, 13, 13, 13, 14, 14, 14, 14, 15, 15, 15, 15, 16, 17, 18, 19,
	20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35,
	36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51,
	52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 63, 63, 63, 63, 63,
}

// writeVolume derives each voice's operator volume from channel volume,
// expression, and note velocity, plus a brightness-driven attenuation on the
// modulator of an FM (non-additive) voice.
func (c *Converter) writeVolume(imfChannel int, inst opl.Instrument, voice int, channel *engine.ChannelInfo, velocity byte) {
	midiVolume := channel.Volume * channel.Expression * float64(velocity)
	scaled := volumeTable[clampVolume(midiVolume)]

	carrierLevel := scaleOutputLevel(inst.Carrier[voice].OutputLevel(), scaled)
	c.writeCommand(opl.RegVolume|opl.Carriers[imfChannel], inst.Carrier[voice].KSLOutput&0xc0|carrierLevel)

	if inst.IsAM(voice) {
		modLevel := scaleOutputLevel(inst.Modulator[voice].OutputLevel(), scaled)
		c.writeCommand(opl.RegVolume|opl.Modulators[imfChannel], inst.Modulator[voice].KSLOutput&0xc0|modLevel)
		return
	}

	brightness := operatorBrightness(channel.Brightness)
	modLevel := scaleOutputLevel(inst.Modulator[voice].OutputLevel(), brightness)
	c.writeCommand(opl.RegVolume|opl.Modulators[imfChannel], inst.Modulator[voice].KSLOutput&0xc0|modLevel)
}

func clampVolume(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return byte(math.Round(v))
}

// scaleOutputLevel blends an instrument's baked-in attenuation with the
// volume scale (0..63): louder scale values reduce attenuation proportionally
// to the instrument's own output range, never going below the instrument's
// own minimum level. Scale 0 gives full attenuation (63).
func scaleOutputLevel(instrumentLevel byte, scale byte) byte {
	attenuation := 63 - int(instrumentLevel&0x3f)
	return byte(63 - (attenuation*int(scale))>>6)
}

// operatorBrightness maps the XG brightness controller's linear [0,1] value
// onto the same 0..63 volume scale volumeTable produces, through DMX's
// sqrt-shaped curve (halved to 0..63). Full brightness leaves the modulator
// at the instrument's own level.
func operatorBrightness(brightness float64) byte {
	if brightness >= 1.0 {
		return 63
	}
	scaled := math.Round(127*math.Sqrt(brightness)) / 2
	return byte(math.Min(63, scaled))
}

// allocateChannel returns a free OPL channel, or the least-recently-used
// busy one if all are occupied (voice stealing).
func (c *Converter) allocateChannel() (int, bool) {
	for i := 0; i < opl.Channels; i++ {
		if !c.channelBusy[i] {
			c.channelBusy[i] = true
			c.lruCounter++
			c.channelLRU[i] = c.lruCounter
			return i, true
		}
	}
	oldest := 0
	for i := 1; i < opl.Channels; i++ {
		if c.channelLRU[i] < c.channelLRU[oldest] {
			oldest = i
		}
	}
	c.lruCounter++
	c.channelLRU[oldest] = c.lruCounter
	return oldest, true
}

// advance converts the elapsed song time (in beats) since the last event
// into player ticks at the current tempo, queuing it as a delay on the next
// emitted command.
func (c *Converter) advance(time float64) {
	if time <= c.lastTime {
		c.lastTime = time
		return
	}
	beats := time - c.lastTime
	c.lastTime = time
	seconds := beats * 60.0 / c.bpm
	ticks := uint32(math.Round(seconds * float64(c.Ticks)))
	c.pendingTicks += ticks
}

func (c *Converter) flushDelay() {
	if c.pendingTicks == 0 {
		return
	}
	if len(c.commands) == 0 {
		c.commands = append(c.commands, imf.Command{})
	}
	for c.pendingTicks > 0 {
		last := &c.commands[len(c.commands)-1]
		room := uint32(0xffff) - uint32(last.Delay)
		add := c.pendingTicks
		if add > room {
			add = room
		}
		last.Delay += uint16(add)
		c.pendingTicks -= add
		if c.pendingTicks > 0 {
			c.commands = append(c.commands, imf.Command{})
		}
	}
}

// writeCommand appends a register write, diffed against shadow state: a
// write that would not change the chip's state is skipped, except for the
// block/key-on register, which must always be sent to retrigger a note. A
// register not yet written by writeCommand has no known value and is always
// sent.
func (c *Converter) writeCommand(reg, value byte) {
	if reg&0xf0 != opl.RegBlock && c.shadowKnown[reg] && c.shadow[reg] == value {
		return
	}
	c.shadow[reg] = value
	c.shadowKnown[reg] = true
	c.flushDelay()
	c.commands = append(c.commands, imf.Command{Reg: reg, Value: value})
	if c.maxCommands > 0 && len(c.commands) > c.maxCommands {
		c.warnf("command stream exceeds %d entries", c.maxCommands)
	}
}

func (c *Converter) warnf(format string, args ...any) {
	if c.Log != nil {
		c.Log.Warnf(format, args...)
		return
	}
	_ = fmt.Sprintf(format, args...)
}

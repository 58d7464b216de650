package engine

import "midi2imf/internal/song"

// DefaultPitchBendSensitivity is the RPN 0 default, in semitones, used until
// a song sets it explicitly.
const DefaultPitchBendSensitivity = 2.0

// percussionChannel is the zero-based MIDI channel (channel 10 in 1-based
// terms) that always plays percussion regardless of its program number.
const percussionChannel = 9

// Drum bank numbers recognized when resolving which catalog bank a
// percussion note-on should look up.
const (
	GMDrumBank  = 0
	XGSfxBank   = 64
	XGDrumBank  = 127
)

// rpnUnset marks no RPN/NRPN parameter selected (both MSB and LSB are 0x7f).
const rpnUnset = 0x7f

// ChannelInfo is the live controller state of one MIDI channel, derived from
// the ControllerChange/ProgramChange/PitchBend events seen so far.
type ChannelInfo struct {
	Channel int

	Program  int
	BankMSB  byte
	BankLSB  byte

	Volume     float64 // scale_14bit, default 100/127 per spec
	Expression float64 // scale_14bit, default 1.0 (127/127)
	Pan        float64 // balance_14bit, default 0 (center)
	Balance    float64 // balance_14bit, default 0 (center)
	Brightness float64 // scale_14bit, default 1.0 (127/127)

	PitchBend            float64 // balance_14bit, default 0
	PitchBendSensitivity float64 // semitones, default DefaultPitchBendSensitivity
	FineTuningCents      float64

	rpnMSB, rpnLSB   byte
	nrpnMSB, nrpnLSB byte
	rpnSelected      bool
	dataMSB, dataLSB byte
}

// NewChannelInfo returns a ChannelInfo reset to its power-on defaults.
func NewChannelInfo(channel int) *ChannelInfo {
	c := &ChannelInfo{Channel: channel}
	c.Reset()
	return c
}

// IsPercussion reports whether this channel is the fixed GM percussion
// channel.
func (c *ChannelInfo) IsPercussion() bool {
	return c.Channel == percussionChannel
}

// Reset restores every controller to its default value, per MIDI's
// Reset All Controllers (CC121) semantics.
func (c *ChannelInfo) Reset() {
	c.Volume = 100.0 / 127.0
	c.Expression = 1.0
	c.Pan = 0
	c.Balance = 0
	c.Brightness = 1.0
	c.PitchBend = 0
	c.PitchBendSensitivity = DefaultPitchBendSensitivity
	c.FineTuningCents = 0
	c.rpnMSB, c.rpnLSB = rpnUnset, rpnUnset
	c.nrpnMSB, c.nrpnLSB = rpnUnset, rpnUnset
	c.rpnSelected = false
}

// DrumBank resolves which drum-kit bank this channel's program/bank-select
// state maps to, for percussion catalog lookups.
func (c *ChannelInfo) DrumBank() int {
	switch {
	case c.BankMSB == XGSfxBank:
		return XGSfxBank
	case c.BankMSB == XGDrumBank:
		return XGDrumBank
	default:
		return GMDrumBank
	}
}

// ApplyController updates derived channel state for a controller-change
// event. Controllers this engine does not track leave the state unchanged.
func (c *ChannelInfo) ApplyController(controller song.ControllerType, value byte) {
	switch controller {
	case song.CCBankSelectMSB:
		c.BankMSB = value
	case song.CCBankSelectLSB:
		c.BankLSB = value
	case song.CCVolumeMSB:
		c.Volume = setMSB(c.Volume, value)
	case song.CCVolumeLSB:
		c.Volume = setLSB(c.Volume, value)
	case song.CCExpressionMSB:
		c.Expression = setMSB(c.Expression, value)
	case song.CCExpressionLSB:
		c.Expression = setLSB(c.Expression, value)
	case song.CCPanMSB:
		c.Pan = setBalanceMSB(c.Pan, value)
	case song.CCPanLSB:
		c.Pan = setBalanceLSB(c.Pan, value)
	case song.CCBalanceMSB:
		c.Balance = setBalanceMSB(c.Balance, value)
	case song.CCBalanceLSB:
		c.Balance = setBalanceLSB(c.Balance, value)
	case song.CCXGBrightness:
		c.Brightness = song.Scale14Bit(uint16(value) << 7)
	case song.CCRPNMSB:
		c.rpnMSB = value
		c.rpnSelected = true
	case song.CCRPNLSB:
		c.rpnLSB = value
		c.rpnSelected = true
	case song.CCNRPNMSB:
		c.nrpnMSB = value
		c.rpnSelected = false
	case song.CCNRPNLSB:
		c.nrpnLSB = value
		c.rpnSelected = false
	case song.CCDataEntryMSB:
		c.dataMSB = value
		c.applyRPNDataEntry()
	case song.CCDataEntryLSB:
		c.dataLSB = value
		c.applyRPNDataEntry()
	case song.CCResetAllControllers:
		c.Reset()
	}
}

// applyRPNDataEntry applies a completed data-entry value to the currently
// selected RPN parameter. NRPN data entries are accepted on the wire but
// have no registered parameters in this engine, so they are silently
// ignored, matching General MIDI's intent that NRPNs are device-specific.
func (c *ChannelInfo) applyRPNDataEntry() {
	if !c.rpnSelected {
		return
	}
	switch {
	case c.rpnMSB == 0 && c.rpnLSB == 0: // pitch bend sensitivity
		c.PitchBendSensitivity = float64(c.dataMSB) + float64(c.dataLSB)/127
	case c.rpnMSB == 0 && c.rpnLSB == 1: // fine tuning
		cents := (int(c.dataMSB)<<7 | int(c.dataLSB)) - 0x2000
		c.FineTuningCents = float64(cents) * 100 / 0x2000
	}
}

// ApplyProgramChange sets the channel's current program number.
func (c *ChannelInfo) ApplyProgramChange(program byte) {
	c.Program = int(program)
}

// ApplyPitchBend sets the channel's current pitch-bend amount from a raw
// 14-bit wire value (0..16383, 8192 = center).
func (c *ChannelInfo) ApplyPitchBend(value uint16) {
	c.PitchBend = song.Balance14Bit(int(value))
}

func setMSB(current float64, msb byte) float64 {
	lsb := lsbOf(current)
	return song.Scale14Bit(uint16(msb)<<7 | lsb)
}

func setLSB(current float64, lsb byte) float64 {
	msb := msbOf(current)
	return song.Scale14Bit(uint16(msb)<<7 | uint16(lsb))
}

func setBalanceMSB(current float64, msb byte) float64 {
	raw := balanceToWire(current)
	lsb := raw & 0x7f
	return song.Balance14Bit(int(uint16(msb)<<7 | lsb))
}

func setBalanceLSB(current float64, lsb byte) float64 {
	raw := balanceToWire(current)
	msb := byte(raw >> 7)
	return song.Balance14Bit(int(uint16(msb)<<7 | uint16(lsb)))
}

// balanceToWire recovers an approximate 14-bit wire value (0..16383, 8192 =
// center) from a balance_14bit-derived float, used only to preserve the
// other half (MSB or LSB) when just one half of a 14-bit pair changes.
func balanceToWire(v float64) uint16 {
	if v >= 0 {
		return uint16(v*0x1fff) + 0x2000
	}
	return uint16(v*0x2000) + 0x2000
}

func msbOf(scaled14 float64) byte {
	return byte(uint16(scaled14*0x3fff) >> 7)
}

func lsbOf(scaled14 float64) uint16 {
	return uint16(scaled14*0x3fff) & 0x7f
}

package opl

// Operator holds the five packed register bytes of one OPL operator
// (modulator or carrier). Each field is a single byte exposed through
// shift/mask accessors rather than one struct field per bit, per the
// bit-field modeling convention for this register space.
type Operator struct {
	TVSKM           byte // tremolo(1)|vibrato(1)|sustain(1)|KSR(1)|freq-mult(4)
	KSLOutput       byte // key-scale-level(2)|output-level(6)
	AttackDecay     byte // attack(4)|decay(4)
	SustainRelease  byte // sustain-level(4)|release(4)
	WaveformSelect  byte // unused(5)|waveform(3)
}

// SetRegs assigns all five register bytes at once.
func (o *Operator) SetRegs(tvskm, kslOutput, attackDecay, sustainRelease, waveformSelect byte) {
	o.TVSKM = tvskm
	o.KSLOutput = kslOutput
	o.AttackDecay = attackDecay
	o.SustainRelease = sustainRelease
	o.WaveformSelect = waveformSelect
}

// Tremolo returns the TVSKM tremolo-enable bit.
func (o Operator) Tremolo() bool { return o.TVSKM&0x80 != 0 }

// Vibrato returns the TVSKM vibrato-enable bit.
func (o Operator) Vibrato() bool { return o.TVSKM&0x40 != 0 }

// Sustain returns the TVSKM sustain-enable bit.
func (o Operator) Sustain() bool { return o.TVSKM&0x20 != 0 }

// KSR returns the TVSKM key-scale-rate bit.
func (o Operator) KSR() bool { return o.TVSKM&0x10 != 0 }

// FreqMult returns the TVSKM 4-bit frequency multiplier.
func (o Operator) FreqMult() byte { return o.TVSKM & 0x0f }

// KeyScaleLevel returns the 2-bit key-scale-level field of KSLOutput.
func (o Operator) KeyScaleLevel() byte { return (o.KSLOutput >> 6) & 0x3 }

// OutputLevel returns the 6-bit output-level (attenuation) field of
// KSLOutput.
func (o Operator) OutputLevel() byte { return o.KSLOutput & 0x3f }

// AttackRate returns the 4-bit attack rate.
func (o Operator) AttackRate() byte { return (o.AttackDecay >> 4) & 0xf }

// DecayRate returns the 4-bit decay rate.
func (o Operator) DecayRate() byte { return o.AttackDecay & 0xf }

// SustainLevel returns the 4-bit sustain level.
func (o Operator) SustainLevel() byte { return (o.SustainRelease >> 4) & 0xf }

// ReleaseRate returns the 4-bit release rate.
func (o Operator) ReleaseRate() byte { return o.SustainRelease & 0xf }

// Waveform returns the 3-bit waveform-select field.
func (o Operator) Waveform() byte { return o.WaveformSelect & 0x7 }

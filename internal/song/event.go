// Package song defines the canonical SongEvent stream that both the MIDI and
// MUS readers produce and that the MIDI engine consumes. Every file-format
// reader translates its native event shapes into this one representation so
// the engine and converter never need to know which format the song came
// from.
package song

import "sort"

// EventType identifies the shape of a SongEvent's payload. Values match the
// MIDI status byte high nibble (or 0xFF for meta events) so readers can
// derive them directly from the wire format.
type EventType byte

const (
	NoteOff                EventType = 0x80
	NoteOn                 EventType = 0x90
	PolyphonicKeyPressure  EventType = 0xA0
	ControllerChange       EventType = 0xB0
	ProgramChange          EventType = 0xC0
	ChannelKeyPressure     EventType = 0xD0
	PitchBend              EventType = 0xE0
	SysExF0                EventType = 0xF0
	SysExF7                EventType = 0xF7
	Meta                   EventType = 0xFF
)

// eventTypeOrder assigns each event type a priority used to break time ties:
// lower values sort first. Program changes and controller changes must
// precede the notes that depend on them at a shared timestamp.
var eventTypeOrder = map[EventType]int{
	ProgramChange:         1,
	ControllerChange:      2,
	PitchBend:             30,
	NoteOff:               10,
	PolyphonicKeyPressure: 40,
	ChannelKeyPressure:    50,
	NoteOn:                100,
	SysExF0:               0,
	SysExF7:               0,
	Meta:                  0,
}

// MetaType identifies the kind of a Meta event's payload.
type MetaType byte

const (
	MetaSequenceNumber    MetaType = 0x00
	MetaTextEvent         MetaType = 0x01
	MetaCopyright         MetaType = 0x02
	MetaTrackName         MetaType = 0x03
	MetaInstrumentName    MetaType = 0x04
	MetaLyric             MetaType = 0x05
	MetaMarker            MetaType = 0x06
	MetaCuePoint          MetaType = 0x07
	MetaProgramName       MetaType = 0x08
	MetaDeviceName        MetaType = 0x09
	MetaChannelPrefix     MetaType = 0x20
	MetaPort              MetaType = 0x21
	MetaEndOfTrack        MetaType = 0x2F
	MetaSetTempo          MetaType = 0x51
	MetaSMPTEOffset       MetaType = 0x54
	MetaTimeSignature     MetaType = 0x58
	MetaKeySignature      MetaType = 0x59
	MetaSequencerSpecific MetaType = 0x7F
)

// ControllerType is a MIDI controller (CC) number, 0..127.
type ControllerType byte

// Controller numbers referenced by the engine and converter. Unlisted
// numbers are still valid ControllerType values; only the ones this module
// inspects are named.
const (
	CCBankSelectMSB        ControllerType = 0
	CCModulationWheelMSB   ControllerType = 1
	CCBreathControllerMSB  ControllerType = 2
	CCFootControllerMSB    ControllerType = 4
	CCPortamentoTimeMSB    ControllerType = 5
	CCDataEntryMSB         ControllerType = 6
	CCVolumeMSB            ControllerType = 7
	CCBalanceMSB           ControllerType = 8
	CCPanMSB               ControllerType = 10
	CCExpressionMSB        ControllerType = 11
	CCBankSelectLSB        ControllerType = 32
	CCModulationWheelLSB   ControllerType = 33
	CCBreathControllerLSB ControllerType = 34
	CCFootControllerLSB    ControllerType = 36
	CCPortamentoTimeLSB    ControllerType = 37
	CCDataEntryLSB         ControllerType = 38
	CCVolumeLSB            ControllerType = 39
	CCBalanceLSB           ControllerType = 40
	CCPanLSB               ControllerType = 42
	CCExpressionLSB        ControllerType = 43
	CCSustainPedalSwitch   ControllerType = 64
	CCSoftPedalSwitch      ControllerType = 67
	CCXGBrightness         ControllerType = 74 // Sound Controller 5
	CCReverbDepth          ControllerType = 91
	CCChorusDepth          ControllerType = 93
	CCNRPNLSB              ControllerType = 98
	CCNRPNMSB              ControllerType = 99
	CCRPNLSB               ControllerType = 100
	CCRPNMSB               ControllerType = 101
	CCAllSoundOff          ControllerType = 120
	CCResetAllControllers  ControllerType = 121
	CCAllNotesOff          ControllerType = 123
	CCMonophonicMode       ControllerType = 126
	CCPolyphonicMode       ControllerType = 127
)

// Event is the canonical, format-independent song event. Exactly one of the
// typed payload fields is populated, selected by Type; Channel is set for
// channel events and nil for SysEx and Meta events, except a MetaChannelPrefix
// event, which carries its channel there.
type Event struct {
	Index   int
	Track   int
	Time    float64 // beats from the start of the song
	Type    EventType
	Channel *int

	Note      byte
	Velocity  byte
	Pressure  byte
	Program   byte
	Amount    float64 // PitchBend, normalized to [-1, 1]
	Controller ControllerType
	Value     byte
	Data      []byte // SysEx payload

	MetaType MetaType
	Text     string
	Number   uint16
	BPM      float64
	Hours, Minutes, Seconds, Frames, FractionalFrames byte
	Numerator, Denominator                            byte
	MidiClocksPerMetronomeTick                        byte
	NumberOf32ndNotesPerBeat                           byte
	SharpsFlats                                        int8
	MajorMinor                                         byte
	Port                                               byte
}

// Scale14Bit scales a 14-bit controller value (0..16383) to [0.0, 1.0].
func Scale14Bit(value uint16) float64 {
	return float64(value) / 0x3fff
}

// Balance14Bit scales a 14-bit controller value to [-1.0, 1.0], where 8192 is
// center. The negative and positive halves use different divisors (0x2000
// and 0x1fff) because the 14-bit range is not symmetric around center.
func Balance14Bit(value int) float64 {
	v := value - 0x2000
	if v >= 0 {
		return float64(v) / 0x1fff
	}
	return float64(v) / 0x2000
}

// Sort orders events per the total-order rule: time, then type priority,
// then channel (non-channel events sort first), then track, then original
// index. Indices are renumbered 0..N-1 to match the new order.
func Sort(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		ao, bo := eventTypeOrder[a.Type], eventTypeOrder[b.Type]
		if ao != bo {
			return ao < bo
		}
		ac, bc := channelOrKey(a.Channel), channelOrKey(b.Channel)
		if ac != bc {
			return ac < bc
		}
		if a.Track != b.Track {
			return a.Track < b.Track
		}
		return a.Index < b.Index
	})
	for i := range events {
		events[i].Index = i
	}
}

func channelOrKey(ch *int) int {
	if ch == nil {
		return -1
	}
	return *ch
}

// Ch returns a pointer to a channel number, for building Event literals.
func Ch(channel int) *int {
	return &channel
}

// Package musreader reads the DMX MUS format (id Software's compact MIDI
// substitute used by Doom and its contemporaries) into the canonical
// song.Event stream.
package musreader

import (
	"bytes"
	"fmt"
	"io"

	"midi2imf/internal/binaryio"
	"midi2imf/internal/song"
)

const (
	signature = "MUS\x1a"

	percussionChannel = 15
	ticksPerBeat      = 140.0 // MUS's fixed 140 Hz tick rate; at the 60 BPM tempo Read inserts, one beat is one second

	eventReleaseNote = 0
	eventPlayNote    = 1
	eventPitchBend   = 2
	eventSystem      = 3
	eventController  = 4
	eventEndOfMeasure = 5
	eventScoreEnd    = 6

	systemAllSoundsOff        = 10
	systemAllNotesOff         = 11
	systemMonoMode            = 12
	systemPolyMode            = 13
	systemResetAllControllers = 14

	ctrlProgramChange = 0
	ctrlBankSelect    = 1
	ctrlModulation    = 2
	ctrlVolume        = 3
	ctrlPan           = 4
	ctrlExpression    = 5
	ctrlReverb        = 6
	ctrlChorus        = 7
	ctrlSustain       = 8
	ctrlSoft          = 9
)

// musToGMController maps a MUS controller-change number to the standard
// MIDI CC number it corresponds to.
var musToGMController = map[byte]song.ControllerType{
	ctrlModulation: song.CCModulationWheelMSB,
	ctrlVolume:     song.CCVolumeMSB,
	ctrlPan:        song.CCPanMSB,
	ctrlExpression: song.CCExpressionMSB,
	ctrlReverb:     song.CCReverbDepth,
	ctrlChorus:     song.CCChorusDepth,
	ctrlSustain:    song.CCSustainPedalSwitch,
	ctrlSoft:       song.CCSoftPedalSwitch,
}

// Song is a fully-read MUS file.
type Song struct {
	Events []song.Event
}

// Read parses a complete MUS file from r.
func Read(r io.Reader) (*Song, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("musreader: %w", err)
	}
	if len(data) < 16 || !bytes.Equal(data[:4], []byte(signature)) {
		return nil, fmt.Errorf("musreader: not a MUS file (bad signature)")
	}
	songLength := binaryio.U16LEBytes(data[4:6])
	songOffset := binaryio.U16LEBytes(data[6:8])
	if int(songOffset)+int(songLength) > len(data) {
		return nil, fmt.Errorf("musreader: song data extends past end of file")
	}
	body := data[songOffset : songOffset+songLength]

	s := &Song{}
	s.Events = append(s.Events, song.Event{Type: song.Meta, MetaType: song.MetaSetTempo, BPM: 60.0})

	p := &parser{data: body}
	if err := p.run(s); err != nil {
		return nil, err
	}

	song.Sort(s.Events)
	return s, nil
}

type parser struct {
	data          []byte
	pos           int
	tick          uint32
	lastVolume    [16]byte
}

func (p *parser) run(s *Song) error {
	for i := range p.lastVolume {
		p.lastVolume[i] = 127
	}

	for p.pos < len(p.data) {
		eventByte := p.data[p.pos]
		p.pos++
		hasDelay := eventByte&0x80 != 0
		eventType := (eventByte >> 4) & 0x7
		channel := int(eventByte & 0x0f)
		if channel == percussionChannel {
			channel = 9 // fold MUS's percussion channel onto GM channel 10
		} else if channel >= 9 {
			channel++ // shift channels 9..14 up past GM's reserved percussion slot
		}

		switch eventType {
		case eventReleaseNote:
			note := p.u8() & 0x7f
			p.emit(s, song.Event{Type: song.NoteOff, Channel: song.Ch(channel), Note: note})
		case eventPlayNote:
			noteByte := p.u8()
			note := noteByte & 0x7f
			velocity := p.lastVolume[channel]
			if noteByte&0x80 != 0 {
				velocity = p.u8() & 0x7f
				p.lastVolume[channel] = velocity
			}
			p.emit(s, song.Event{Type: song.NoteOn, Channel: song.Ch(channel), Note: note, Velocity: velocity})
		case eventPitchBend:
			// MUS bends are one byte with 0x80 as center. The lower half is
			// divided by 128 and the upper half by 127, so 0 maps to -1.0 and
			// 255 to +1.0; the two halves differ by one step at center.
			raw := p.u8()
			amount := float64(int(raw)-0x80) / 127.0
			if raw < 0x80 {
				amount = float64(int(raw)-0x80) / 128.0
			}
			p.emit(s, song.Event{Type: song.PitchBend, Channel: song.Ch(channel), Amount: amount})
		case eventSystem:
			p.emitSystem(s, channel, p.u8())
		case eventController:
			number := p.u8() & 0x7f
			value := p.u8() & 0x7f
			p.emitController(s, channel, number, value)
		case eventEndOfMeasure:
			p.emit(s, song.Event{Type: song.Meta, MetaType: song.MetaMarker, Text: "end of measure"})
		case eventScoreEnd:
			p.emit(s, song.Event{Type: song.Meta, MetaType: song.MetaEndOfTrack})
			return nil
		default:
			return fmt.Errorf("musreader: unknown event type %d", eventType)
		}

		if hasDelay {
			delta, err := p.readDelay()
			if err != nil {
				return err
			}
			p.tick += delta
		}
	}
	return nil
}

func (p *parser) u8() byte {
	b := p.data[p.pos]
	p.pos++
	return b
}

func (p *parser) readDelay() (uint32, error) {
	var v uint32
	for {
		if p.pos >= len(p.data) {
			return 0, fmt.Errorf("musreader: truncated delay value")
		}
		b := p.u8()
		v = v*128 + uint32(b&0x7f)
		if b&0x80 == 0 {
			return v, nil
		}
	}
}

func (p *parser) time() float64 {
	return float64(p.tick) / ticksPerBeat
}

func (p *parser) emit(s *Song, ev song.Event) {
	ev.Time = p.time()
	s.Events = append(s.Events, ev)
}

func (p *parser) emitSystem(s *Song, channel int, controller byte) {
	switch controller {
	case systemAllSoundsOff:
		p.emit(s, song.Event{Type: song.ControllerChange, Channel: song.Ch(channel), Controller: song.CCAllSoundOff})
	case systemAllNotesOff:
		p.emit(s, song.Event{Type: song.ControllerChange, Channel: song.Ch(channel), Controller: song.CCAllNotesOff})
	case systemMonoMode:
		p.emit(s, song.Event{Type: song.ControllerChange, Channel: song.Ch(channel), Controller: song.CCMonophonicMode})
	case systemPolyMode:
		p.emit(s, song.Event{Type: song.ControllerChange, Channel: song.Ch(channel), Controller: song.CCPolyphonicMode})
	case systemResetAllControllers:
		p.emit(s, song.Event{Type: song.ControllerChange, Channel: song.Ch(channel), Controller: song.CCResetAllControllers})
	}
}

func (p *parser) emitController(s *Song, channel int, number, value byte) {
	if number == ctrlProgramChange {
		p.emit(s, song.Event{Type: song.ProgramChange, Channel: song.Ch(channel), Program: value})
		return
	}
	if number == ctrlBankSelect {
		p.emit(s, song.Event{Type: song.ControllerChange, Channel: song.Ch(channel), Controller: song.CCBankSelectMSB, Value: value})
		return
	}
	cc, ok := musToGMController[number]
	if !ok {
		return
	}
	p.emit(s, song.Event{Type: song.ControllerChange, Channel: song.Ch(channel), Controller: cc, Value: value})
}

// Package engine turns a flat song.Event stream into the higher-level,
// per-channel-state-aware calls the converter needs: note on/off with
// resolved program and bank, pitch bend as a normalized amount alongside the
// channel's sensitivity in semitones, and volume/expression/brightness
// already folded into channel state.
package engine

import "midi2imf/internal/song"

// Converter receives the engine's resolved event stream. Every method may be
// called from a single goroutine only; the engine does not run handlers
// concurrently.
type Converter interface {
	OnTempoChange(time, bpm float64)
	OnNoteOn(time float64, channel *ChannelInfo, note, velocity byte)
	OnNoteOff(time float64, channel *ChannelInfo, note byte)
	OnPitchBend(time float64, channel *ChannelInfo)
	OnControllerChange(time float64, channel *ChannelInfo, controller song.ControllerType, value byte)
	OnProgramChange(time float64, channel *ChannelInfo)
	OnEndOfSong(time float64)
}

// Engine dispatches a sorted song.Event stream to a Converter, maintaining
// the 16 channels' controller state along the way.
type Engine struct {
	Channels [16]*ChannelInfo
}

// New returns an Engine with all 16 channels at their power-on defaults.
func New() *Engine {
	e := &Engine{}
	for i := range e.Channels {
		e.Channels[i] = NewChannelInfo(i)
	}
	return e
}

// Run dispatches every event in events, in order, to conv. OnEndOfSong fires
// exactly once, at the maximum event time across the whole stream — a
// format-1 file's per-track MetaEndOfTrack markers are not end-of-song
// signals, since other tracks may still have events pending.
func (e *Engine) Run(events []song.Event, conv Converter) {
	var lastTime float64
	for _, ev := range events {
		if ev.Time > lastTime {
			lastTime = ev.Time
		}
		e.dispatch(ev, conv)
	}
	conv.OnEndOfSong(lastTime)
}

func (e *Engine) dispatch(ev song.Event, conv Converter) {
	switch ev.Type {
	case song.Meta:
		if ev.MetaType == song.MetaSetTempo {
			conv.OnTempoChange(ev.Time, ev.BPM)
		}
		return
	case song.SysExF0, song.SysExF7:
		return
	}

	if ev.Channel == nil {
		return
	}
	ch := e.Channels[*ev.Channel]

	switch ev.Type {
	case song.NoteOn:
		if ev.Velocity == 0 {
			conv.OnNoteOff(ev.Time, ch, ev.Note)
			return
		}
		conv.OnNoteOn(ev.Time, ch, ev.Note, ev.Velocity)
	case song.NoteOff:
		conv.OnNoteOff(ev.Time, ch, ev.Note)
	case song.ProgramChange:
		if ch.Program == int(ev.Program) {
			return
		}
		ch.ApplyProgramChange(ev.Program)
		conv.OnProgramChange(ev.Time, ch)
	case song.PitchBend:
		if ch.PitchBend == ev.Amount {
			return
		}
		ch.PitchBend = ev.Amount
		conv.OnPitchBend(ev.Time, ch)
	case song.ControllerChange:
		ch.ApplyController(ev.Controller, ev.Value)
		conv.OnControllerChange(ev.Time, ch, ev.Controller, ev.Value)
	case song.PolyphonicKeyPressure, song.ChannelKeyPressure:
		// Pressure has no OPL-side equivalent in this converter; dropped.
	}
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midi2imf/internal/song"
)

type recordingConverter struct {
	noteOns  []byte
	noteOffs []byte
	tempos   []float64
	ended    bool
}

func (r *recordingConverter) OnTempoChange(time, bpm float64) { r.tempos = append(r.tempos, bpm) }
func (r *recordingConverter) OnNoteOn(time float64, channel *ChannelInfo, note, velocity byte) {
	r.noteOns = append(r.noteOns, note)
}
func (r *recordingConverter) OnNoteOff(time float64, channel *ChannelInfo, note byte) {
	r.noteOffs = append(r.noteOffs, note)
}
func (r *recordingConverter) OnPitchBend(time float64, channel *ChannelInfo)   {}
func (r *recordingConverter) OnControllerChange(time float64, channel *ChannelInfo, controller song.ControllerType, value byte) {
}
func (r *recordingConverter) OnProgramChange(time float64, channel *ChannelInfo) {}
func (r *recordingConverter) OnEndOfSong(time float64)                          { r.ended = true }

func TestEngineDispatchesNoteOnOff(t *testing.T) {
	e := New()
	rec := &recordingConverter{}
	events := []song.Event{
		{Type: song.NoteOn, Channel: song.Ch(0), Note: 60, Velocity: 100},
		{Type: song.NoteOff, Channel: song.Ch(0), Note: 60},
	}
	e.Run(events, rec)
	require.Equal(t, []byte{60}, rec.noteOns)
	require.Equal(t, []byte{60}, rec.noteOffs)
}

func TestEngineTreatsZeroVelocityNoteOnAsNoteOff(t *testing.T) {
	e := New()
	rec := &recordingConverter{}
	events := []song.Event{
		{Type: song.NoteOn, Channel: song.Ch(0), Note: 60, Velocity: 0},
	}
	e.Run(events, rec)
	assert.Empty(t, rec.noteOns)
	assert.Equal(t, []byte{60}, rec.noteOffs)
}

func TestEngineDispatchesTempoAndEndOfSong(t *testing.T) {
	e := New()
	rec := &recordingConverter{}
	events := []song.Event{
		{Type: song.Meta, MetaType: song.MetaSetTempo, BPM: 140},
		{Type: song.Meta, MetaType: song.MetaEndOfTrack},
	}
	e.Run(events, rec)
	require.Equal(t, []float64{140}, rec.tempos)
	assert.True(t, rec.ended)
}

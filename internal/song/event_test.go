package song

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScale14Bit(t *testing.T) {
	assert.Equal(t, 0.0, Scale14Bit(0))
	assert.InDelta(t, 1.0, Scale14Bit(0x3fff), 1e-9)
}

func TestBalance14Bit(t *testing.T) {
	assert.Equal(t, 0.0, Balance14Bit(0x2000))
	assert.InDelta(t, 1.0, Balance14Bit(0x3fff), 1e-9)
	assert.InDelta(t, -1.0, Balance14Bit(0), 1e-9)
}

func TestSortOrdersByTimeThenPriorityThenChannel(t *testing.T) {
	events := []Event{
		{Index: 0, Time: 1, Type: NoteOn, Channel: Ch(2)},
		{Index: 1, Time: 1, Type: ControllerChange, Channel: Ch(1)},
		{Index: 2, Time: 0, Type: NoteOn, Channel: Ch(0)},
		{Index: 3, Time: 1, Type: ProgramChange, Channel: Ch(0)},
	}
	Sort(events)
	require.Len(t, events, 4)
	assert.Equal(t, 0.0, events[0].Time)              // time 0 sorts first
	assert.Equal(t, ProgramChange, events[1].Type)    // then time 1, program change (priority 1)
	assert.Equal(t, ControllerChange, events[2].Type) // then controller change (priority 2)
	assert.Equal(t, NoteOn, events[3].Type)           // then note on (priority 100)
	for i, ev := range events {
		assert.Equal(t, i, ev.Index, "indices must be renumbered after sort")
	}
}

func TestSortIsStableForEqualKeys(t *testing.T) {
	events := []Event{
		{Index: 5, Time: 0, Type: NoteOn, Channel: Ch(0), Track: 0, Note: 60},
		{Index: 6, Time: 0, Type: NoteOn, Channel: Ch(0), Track: 0, Note: 61},
	}
	Sort(events)
	assert.Equal(t, byte(60), events[0].Note)
	assert.Equal(t, byte(61), events[1].Note)
}

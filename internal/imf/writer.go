// Package imf serializes OPL register commands into id Music Format files
// (type 0, a bare command stream, and type 1, which adds a leading
// byte-length prefix). Either type may end with an optional tag block.
package imf

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FileType selects the IMF container variant to write.
type FileType int

const (
	Type0 FileType = iota
	Type1
)

// DefaultTicks is the standard IMF playback rate (commands/second) for each
// file type. Players that ignore the rate entirely assume Type0's 560 Hz.
const (
	DefaultTicksType0 = 560
	DefaultTicksType1 = 700
)

// maxType1Commands is the largest command count that fits in a type-1 file's
// 16-bit little-endian length prefix, measured in 4-byte command records.
const maxType1Commands = 0xffff / 4

// Command is one OPL register write plus the delay, in player ticks, to wait
// after applying it before the next command.
type Command struct {
	Reg   byte
	Value byte
	Delay uint16
}

// Song is a complete IMF command stream ready to serialize.
type Song struct {
	Type     FileType
	Ticks    int // commands/second the player should run at
	Title    string
	Composer string
	Remarks  string
	Program  string
	Commands []Command
}

// validTicks are the only values musfileplugin's descendants ever wrote to
// the ticks field; anything else is almost certainly a mistake upstream.
var validTicks = map[int]bool{280: true, 560: true, 700: true}

// Write serializes s to w. Type-1 output is silently truncated to the first
// 16383 commands, since the format's 2-byte length prefix cannot address
// more; truncation is reported back to the caller so it can be logged.
// Type-0 output has no such limit and is never truncated.
func Write(w io.Writer, s Song) (truncated bool, err error) {
	if !validTicks[s.Ticks] {
		return false, fmt.Errorf("imf: invalid ticks value %d (must be 280, 560, or 700)", s.Ticks)
	}

	commands := s.Commands
	if s.Type == Type1 && len(commands) > maxType1Commands {
		commands = commands[:maxType1Commands]
		truncated = true
	}

	if s.Type == Type1 {
		length := uint16(len(commands) * 4)
		if err := binary.Write(w, binary.LittleEndian, length); err != nil {
			return truncated, fmt.Errorf("imf: %w", err)
		}
	}

	buf := make([]byte, 4)
	for _, c := range commands {
		buf[0] = c.Reg
		buf[1] = c.Value
		binary.LittleEndian.PutUint16(buf[2:4], c.Delay)
		if _, err := w.Write(buf); err != nil {
			return truncated, fmt.Errorf("imf: %w", err)
		}
	}

	if s.Title != "" || s.Composer != "" || s.Remarks != "" {
		if err := writeTag(w, s); err != nil {
			return truncated, err
		}
	}
	return truncated, nil
}

const tagByte = 0x1a

func writeTag(w io.Writer, s Song) error {
	program := s.Program
	if program == "" {
		program = "midi2imf"
	}
	if _, err := w.Write([]byte{tagByte}); err != nil {
		return fmt.Errorf("imf: %w", err)
	}
	for _, field := range []string{s.Title, s.Composer, s.Remarks, program} {
		if _, err := io.WriteString(w, field); err != nil {
			return fmt.Errorf("imf: %w", err)
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return fmt.Errorf("imf: %w", err)
		}
	}
	return nil
}

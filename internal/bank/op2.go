package bank

import (
	"bytes"
	"fmt"
	"io"

	"midi2imf/internal/binaryio"
	"midi2imf/internal/opl"
)

const (
	op2Signature   = "#OPL_II#"
	op2EntryStart  = 8
	op2EntrySize   = 36
	op2EntryCount  = 175
	op2VoiceSize   = 16
	op2NameStart   = op2EntryStart + op2EntryCount*op2EntrySize // 6308
	op2NameSize    = 32

	op2FlagFixedPitch     = 0x01
	op2FlagDoubleVoice    = 0x04
)

// op2PercussionStart is the program number of the first percussion entry in
// the fixed 175-slot OP2 bank: 128 melodic General MIDI instruments followed
// by 47 percussion notes (35..81).
const op2PercussionStart = 128

// LoadOP2 reads a DMX OP2 ("GENMIDI") instrument bank and adds every entry to
// cat. Melodic instruments are keyed by (Melodic, 0, program 0..127);
// percussion entries are keyed by (Percussion, 0, MIDI note 35..81).
func LoadOP2(r io.Reader, cat *Catalog) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("op2: %w", err)
	}
	if len(data) < op2NameStart+op2EntryCount*op2NameSize {
		return fmt.Errorf("op2: file too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:len(op2Signature)], []byte(op2Signature)) {
		return fmt.Errorf("op2: bad signature")
	}

	for i := 0; i < op2EntryCount; i++ {
		entry := data[op2EntryStart+i*op2EntrySize : op2EntryStart+(i+1)*op2EntrySize]
		nameBytes := data[op2NameStart+i*op2NameSize : op2NameStart+(i+1)*op2NameSize]
		inst := parseOP2Entry(entry, binaryio.GetAsciiText(nameBytes))

		id := ID{Kind: opl.Melodic, Bank: 0, Program: i}
		if i >= op2PercussionStart {
			id = ID{Kind: opl.Percussion, Bank: 0, Program: i - op2PercussionStart + 35}
		}
		cat.Add(id, inst)
	}
	return nil
}

func parseOP2Entry(entry []byte, name string) opl.Instrument {
	flags := binaryio.U16LEBytes(entry[0:2])
	numVoices := 1
	if flags&op2FlagDoubleVoice != 0 {
		numVoices = 2
	}
	inst := opl.NewInstrument(name, numVoices)
	inst.UseGivenNote = flags&op2FlagFixedPitch != 0
	inst.UseSecondaryVoice = flags&op2FlagDoubleVoice != 0
	inst.FineTuning = entry[2]
	inst.GivenNote = entry[3]

	for voice := 0; voice < opl.MaxVoices; voice++ {
		v := entry[4+voice*op2VoiceSize : 4+(voice+1)*op2VoiceSize]
		// Each operator is 6 bytes: TVSKM, attack/decay, sustain/release,
		// waveform, KSL, output level (KSL and level combine into KSLOutput).
		inst.Modulator[voice].SetRegs(v[0], v[4]&0xc0|v[5]&0x3f, v[1], v[2], v[3])
		inst.Feedback[voice] = v[6]
		inst.Carrier[voice].SetRegs(v[7], v[11]&0xc0|v[12]&0x3f, v[8], v[9], v[10])
		inst.NoteOffset[voice] = binaryio.S16LEBytes(v[14:16])
	}
	return inst
}

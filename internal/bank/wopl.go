package bank

import (
	"bytes"
	"fmt"
	"io"

	"midi2imf/internal/binaryio"
	"midi2imf/internal/opl"
)

const (
	woplSignature  = "WOPL3-BANK\x00"
	woplHeaderSize = 19 // signature(11) + version(2) + melodicBanks(2) + percussionBanks(2) + flags(1) + volumeModel(1)

	woplBankMetaEntrySize = 34 // name[32] + lsb(1) + msb(1)
	woplEntrySizeV1V2     = 62
	woplEntrySizeV3       = 66
	woplInstrumentsPerBank = 128

	woplFlag2Op        = 0x00
	woplFlag4Op        = 0x01
	woplFlagPseudo4Op  = 0x02
	woplFlagIsBlank    = 0x04
	woplFlagRhythmMask = 0x38
)

// bankMeta is one melodic or percussion bank's catalog-facing identity.
type bankMeta struct {
	name string
	lsb  byte
	msb  byte
}

// LoadWOPL reads a WOPL3 instrument bank (versions 1-3) and adds every
// instrument to cat, keyed by its bank's MSB as the catalog Bank number.
func LoadWOPL(r io.Reader, cat *Catalog) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("wopl: %w", err)
	}
	if len(data) < woplHeaderSize || !bytes.Equal(data[:len(woplSignature)], []byte(woplSignature)) {
		return fmt.Errorf("wopl: bad signature")
	}

	version := binaryio.U16LEBytes(data[11:13])
	numMelodicBanks := int(binaryio.U16BEBytes(data[13:15]))
	numPercussionBanks := int(binaryio.U16BEBytes(data[15:17]))
	if numMelodicBanks == 0 {
		numMelodicBanks = 1
	}
	if numPercussionBanks == 0 {
		numPercussionBanks = 1
	}

	entrySize := woplEntrySizeV1V2
	if version >= 3 {
		entrySize = woplEntrySizeV3
	}

	offset := woplHeaderSize
	var melodicMeta, percussionMeta []bankMeta
	if version >= 2 {
		melodicMeta, offset = readBankMeta(data, offset, numMelodicBanks)
		percussionMeta, offset = readBankMeta(data, offset, numPercussionBanks)
	} else {
		melodicMeta = []bankMeta{{}}
		percussionMeta = []bankMeta{{}}
	}

	offset = readInstrumentBanks(data, offset, melodicMeta, entrySize, opl.Melodic, cat)
	_ = readInstrumentBanks(data, offset, percussionMeta, entrySize, opl.Percussion, cat)
	return nil
}

func readBankMeta(data []byte, offset, count int) ([]bankMeta, int) {
	metas := make([]bankMeta, count)
	for i := 0; i < count; i++ {
		entry := data[offset : offset+woplBankMetaEntrySize]
		metas[i] = bankMeta{
			name: binaryio.GetAsciiText(entry[0:32]),
			lsb:  entry[32],
			msb:  entry[33],
		}
		offset += woplBankMetaEntrySize
	}
	return metas, offset
}

func readInstrumentBanks(data []byte, offset int, banks []bankMeta, entrySize int, kind opl.Kind, cat *Catalog) int {
	for _, meta := range banks {
		for program := 0; program < woplInstrumentsPerBank; program++ {
			if offset+entrySize > len(data) {
				return offset
			}
			entry := data[offset : offset+entrySize]
			offset += entrySize

			if skipWOPLEntry(entry) {
				continue
			}
			inst := parseWOPLEntry(entry, kind)
			cat.Add(ID{Kind: kind, Bank: int(meta.msb), Program: program}, inst)
		}
	}
	return offset
}

// skipWOPLEntry implements the mandatory skip rules: blank placeholder
// entries, chip-wide rhythm-mode entries (this module only plays melodic
// voices on melodic/percussion catalog channels, never true OPL rhythm
// mode), and true 4-op entries that aren't also flagged pseudo-4-op (this
// module has no four-operator voice model, only the two-voice pseudo-4-op
// layering DMX uses).
func skipWOPLEntry(entry []byte) bool {
	flags := entry[39]
	if flags&woplFlagIsBlank != 0 {
		return true
	}
	if flags&woplFlagRhythmMask != 0 {
		return true
	}
	if flags&woplFlag4Op != 0 && flags&woplFlagPseudo4Op == 0 {
		return true
	}
	return false
}

func parseWOPLEntry(entry []byte, kind opl.Kind) opl.Instrument {
	name := binaryio.GetAsciiText(entry[0:32])
	flags := entry[39]

	// The second voice is only meaningful as DMX's pseudo-4-op layering:
	// both the 4-op and pseudo-4-op bits set together. skipWOPLEntry has
	// already rejected true 4-op (4-op set, pseudo-4-op clear).
	numVoices := 1
	if flags&woplFlag4Op != 0 && flags&woplFlagPseudo4Op != 0 {
		numVoices = 2
	}

	inst := opl.NewInstrument(name, numVoices)
	inst.UseSecondaryVoice = numVoices == 2
	inst.NoteOffset[0] = binaryio.S16BEBytes(entry[32:34]) - 12
	inst.NoteOffset[1] = binaryio.S16BEBytes(entry[34:36]) - 12
	inst.FineTuning = entry[37]
	inst.GivenNote = entry[38]
	inst.UseGivenNote = kind == opl.Percussion

	inst.Feedback[0] = entry[40]
	inst.Feedback[1] = entry[41]

	voice0 := entry[42:52]
	setWOPLVoice(&inst, 0, voice0)
	voice1 := entry[52:62]
	setWOPLVoice(&inst, 1, voice1)

	return inst
}

// setWOPLVoice unpacks a 10-byte voice block. WOPL3 stores carrier first and
// modulator second, the reverse of the OP2 format's modulator-first layout.
func setWOPLVoice(inst *opl.Instrument, voice int, data []byte) {
	carrier := data[0:5]
	modulator := data[5:10]
	inst.Carrier[voice].SetRegs(carrier[0], carrier[1], carrier[2], carrier[3], carrier[4])
	inst.Modulator[voice].SetRegs(modulator[0], modulator[1], modulator[2], modulator[3], modulator[4])
}

// Command midi2imf converts Standard MIDI Files and DMX MUS files into id
// Music Format (IMF) files playable on OPL2/OPL3 FM synthesizer hardware.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"midi2imf/internal/bank"
	"midi2imf/internal/convert"
	"midi2imf/internal/engine"
	"midi2imf/internal/imf"
	"midi2imf/internal/midireader"
	"midi2imf/internal/musreader"
	"midi2imf/internal/song"
)

type options struct {
	output     string
	bankPath   string
	imfType    string
	ticks      int
	title      string
	composer   string
	remarks    string
	verbosity  int
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "midi2imf <input.mid|input.mus>",
		Short: "Convert a MIDI or MUS song into an id Music Format (IMF) file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], opts)
		},
		SilenceUsage: true,
	}

	flags := root.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "output .wlf/.imf path (default: input path with extension replaced)")
	flags.StringVarP(&opts.bankPath, "bank", "b", "", "instrument bank file (.op2 or .wopl); required")
	flags.StringVar(&opts.imfType, "type", "imf0", "output container type: imf0 or imf1")
	flags.IntVar(&opts.ticks, "ticks", 0, "player ticks/second (280, 560, or 700; default depends on --type)")
	flags.StringVar(&opts.title, "title", "", "song title tag")
	flags.StringVar(&opts.composer, "composer", "", "song composer tag")
	flags.StringVar(&opts.remarks, "remarks", "", "song remarks tag")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "increase log verbosity (repeatable)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(inputPath string, opts *options) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	switch {
	case opts.verbosity >= 3:
		logger.SetLevel(log.DebugLevel)
	case opts.verbosity >= 1:
		logger.SetLevel(log.InfoLevel)
	default:
		logger.SetLevel(log.WarnLevel)
	}

	if opts.bankPath == "" {
		return fmt.Errorf("midi2imf: --bank is required")
	}

	cat := bank.New(func(msg string) { logger.Warn(msg) })
	if err := loadBank(opts.bankPath, cat); err != nil {
		return err
	}
	logger.Infof("loaded %d instruments from %s", cat.Len(), opts.bankPath)

	events, err := readSong(inputPath)
	if err != nil {
		return err
	}
	logger.Infof("read %d events from %s", len(events), inputPath)

	fileType := imf.Type0
	ticks := opts.ticks
	if ticks == 0 {
		ticks = imf.DefaultTicksType0
	}
	if strings.EqualFold(opts.imfType, "imf1") {
		fileType = imf.Type1
		if opts.ticks == 0 {
			ticks = imf.DefaultTicksType1
		}
	}

	conv := convert.New(cat, ticks, logAdapter{logger})
	e := engine.New()
	e.Run(events, conv)

	outSong := imf.Song{
		Type:     fileType,
		Ticks:    ticks,
		Title:    opts.title,
		Composer: opts.composer,
		Remarks:  opts.remarks,
		Commands: conv.Commands(),
	}

	outPath := opts.output
	if outPath == "" {
		outPath = defaultOutputPath(inputPath, fileType)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("midi2imf: %w", err)
	}
	defer f.Close()

	truncated, err := imf.Write(f, outSong)
	if err != nil {
		return fmt.Errorf("midi2imf: %w", err)
	}
	if truncated {
		logger.Warnf("output truncated to fit the type-1 command limit; consider --type imf0")
	}
	logger.Infof("wrote %d commands to %s", len(outSong.Commands), outPath)
	return nil
}

func loadBank(path string, cat *bank.Catalog) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("midi2imf: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".wopl") {
		return bank.LoadWOPL(f, cat)
	}
	return bank.LoadOP2(f, cat)
}

func readSong(path string) ([]song.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("midi2imf: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".mus") {
		s, err := musreader.Read(f)
		if err != nil {
			return nil, fmt.Errorf("midi2imf: %w", err)
		}
		return s.Events, nil
	}
	s, err := midireader.Read(f)
	if err != nil {
		return nil, fmt.Errorf("midi2imf: %w", err)
	}
	return s.Events, nil
}

func defaultOutputPath(inputPath string, fileType imf.FileType) string {
	ext := ".imf"
	if fileType == imf.Type1 {
		ext = ".wlf"
	}
	trimmed := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return trimmed + ext
}

// logAdapter bridges charmbracelet/log to the convert.Logger interface so
// the converter package doesn't import a concrete logging library.
type logAdapter struct {
	l *log.Logger
}

func (a logAdapter) Warnf(format string, args ...any)  { a.l.Warnf(format, args...) }
func (a logAdapter) Debugf(format string, args ...any) { a.l.Debugf(format, args...) }

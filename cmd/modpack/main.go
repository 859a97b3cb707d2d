package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chriskillpack/modpack"
)

const helpText = `Modpack - Optimize, compress and convert ProTracker/P61A modules
================================================================
Arguments are processed from left to right. This means you can write more
than one output if needed.

Importing / exporting modules:
  -in:FORMAT NAME      Load module in specified format.
  -out:FORMAT NAME     Save module in specified format.

  Available formats:
    mod                ProTracker
    p61a               The Player 6.1A

  If NAME is -, standard input/output will be used.

  -opts:OPTIONS                Set import/export options

  P61A export options:
    sign                  Add signature when exporting ('P61A') (disabled)
    4bit[RANGE]           Compress specified samples to 4-bit (unimplemented)
    delta                 Delta-encode samples (unimplemented)
    [-]compress_patterns  Compress pattern data (enabled)
    [-]song               Write song data to output (enabled)
    [-]samples            Write sample data to output (enabled)

Optimization options:
  -optimize OPTIONS

  Available options:
    remove_unused_patterns   Remove unused patterns
    remove_unused_samples    Remove unused samples (index is preserved)
    trim_samples             Trim tailing data in samples (not looped)
    trim_loops               Also trim looped samples (implies trim_samples)
    remove_identical_samples Merge identical samples, rewrite pattern data
    compact_sample_indexes   Remove empty space in the sample table
    clean_effects            Clean effects in pattern data
    clean:e8                 Remove E8x from pattern data (not implied by all)
    all                      Apply all available optimizations

Miscellaneous:
  -d N    Log level (0 = info, 1 = debug, 2 = trace); N must be a number,
          but every message is info-level, so the level changes no output
  -q      Quiet mode
`

func main() {
	log.SetFlags(0)
	log.SetPrefix("modpack: ")

	if len(os.Args) <= 1 || os.Args[1] == "-h" || os.Args[1] == "--help" {
		fmt.Print(helpText)
		return
	}

	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	var mod *modpack.Module
	options := modpack.ParseOptions("")
	logger := log.New(os.Stderr, "modpack: ", 0)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() (string, bool) {
			if i+1 < len(args) {
				return args[i+1], true
			}
			return "", false
		}

		switch {
		case strings.HasPrefix(arg, "-in:"):
			format := arg[len("-in:"):]
			name, ok := next()
			if !ok {
				return fmt.Errorf("no filename specified for -in:%s", format)
			}
			i++

			logger.Printf("loading %q...\n", name)
			data, err := readInput(name)
			if err != nil {
				return err
			}
			m, err := loadModule(format, data, logger)
			if err != nil {
				return fmt.Errorf("loading %q: %w", name, err)
			}
			mod = m

		case strings.HasPrefix(arg, "-out:"):
			format := arg[len("-out:"):]
			name, ok := next()
			if !ok {
				return fmt.Errorf("no filename specified for -out:%s", format)
			}
			i++

			if mod == nil {
				return fmt.Errorf("no module loaded before -out:%s", format)
			}

			buf := modpack.NewByteBuffer()
			if err := saveModule(format, buf, mod, options); err != nil {
				return fmt.Errorf("conversion to %s failed: %w", format, err)
			}

			logger.Printf("writing result to %q...\n", name)
			if err := writeOutput(name, buf.Bytes()); err != nil {
				return err
			}

		case strings.HasPrefix(arg, "-opts:"):
			options = modpack.ParseOptions(arg[len("-opts:"):])

		case arg == "-optimize":
			opt, ok := next()
			if !ok {
				return fmt.Errorf("no options specified for optimization")
			}
			i++
			if mod == nil {
				return fmt.Errorf("no module loaded before -optimize")
			}
			modpack.Optimize(mod, modpack.ParseOptions(opt))

		case arg == "-d":
			lvl, ok := next()
			if !ok {
				return fmt.Errorf("no argument specified for -d")
			}
			i++
			if _, err := strconv.Atoi(lvl); err != nil {
				return fmt.Errorf("invalid log level %q", lvl)
			}

		case arg == "-q":
			logger.SetOutput(devNull{})

		default:
			return fmt.Errorf("unrecognized argument %q", arg)
		}
	}

	return nil
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return readAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func writeOutput(name string, data []byte) error {
	if name == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(name, data, 0o644)
}

func loadModule(format string, data []byte, logger *log.Logger) (*modpack.Module, error) {
	buf := modpack.NewByteBufferFrom(data)
	switch format {
	case "mod":
		return modpack.LoadProTracker(buf, logger)
	case "p61a":
		return modpack.LoadP61A(buf)
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}

func saveModule(format string, buf *modpack.ByteBuffer, mod *modpack.Module, opts *modpack.OptionSet) error {
	switch format {
	case "mod":
		return modpack.SaveProTracker(buf, mod)
	case "p61a":
		_, err := modpack.SaveP61A(buf, mod, opts)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

type devNull struct{}

func (devNull) Write(p []byte) (int, error) { return len(p), nil }

func readAll(f *os.File) ([]byte, error) {
	out, err := io.ReadAll(f)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}

package byteforth

import (
	"io"
	"os"

	"github.com/jcorbin/byteforth/internal/logio"
)

// config collects every knob New can be built with, before any of the
// fixed-capacity structures it owns are allocated. Unlike the teacher's
// options, which apply directly onto an already-allocated VM, these options
// apply onto config first: image and stack capacity can only be chosen
// before NewImage/NewDataStack/NewReturnStack run, not patched in after.
type config struct {
	dictSize   int
	maxWords   int
	stackDepth int
	retDepth   int

	in  io.Reader
	out io.Writer

	logger *logio.Logger
	trace  bool

	fs FileSystem
}

func defaultConfig() config {
	log := &logio.Logger{}
	log.SetOutput(nopWriteCloser{io.Discard})
	return config{
		dictSize:   DefaultDictSize,
		maxWords:   DefaultMaxWords,
		stackDepth: DefaultStackDepth,
		retDepth:   DefaultRetDepth,
		in:         os.Stdin,
		out:        os.Stdout,
		logger:     log,
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// VMOption configures a VM at construction time.
type VMOption interface{ apply(cfg *config) }

type optionFunc func(cfg *config)

func (f optionFunc) apply(cfg *config) { f(cfg) }

// WithDictSize sets the dictionary arena's fixed capacity.
func WithDictSize(n int) VMOption {
	return optionFunc(func(cfg *config) { cfg.dictSize = n })
}

// WithMaxWords sets the word table's fixed capacity.
func WithMaxWords(n int) VMOption {
	return optionFunc(func(cfg *config) { cfg.maxWords = n })
}

// WithStackDepth sets the data stack's fixed capacity.
func WithStackDepth(n int) VMOption {
	return optionFunc(func(cfg *config) { cfg.stackDepth = n })
}

// WithRetDepth sets the return stack's fixed capacity.
func WithRetDepth(n int) VMOption {
	return optionFunc(func(cfg *config) { cfg.retDepth = n })
}

// WithInput sets the reader KEY consumes from. LOAD opens its files through
// the FileSystem instead.
func WithInput(r io.Reader) VMOption {
	return optionFunc(func(cfg *config) { cfg.in = r })
}

// WithOutput sets the writer EMIT, CR, TYPE, and the debug words write to.
func WithOutput(w io.Writer) VMOption {
	return optionFunc(func(cfg *config) { cfg.out = w })
}

// WithLogger sets the leveled logger used for TRACE/ERROR diagnostics.
func WithLogger(l *logio.Logger) VMOption {
	return optionFunc(func(cfg *config) { cfg.logger = l })
}

// WithTrace enables per-opcode TRACE logging in the executor.
func WithTrace(trace bool) VMOption {
	return optionFunc(func(cfg *config) { cfg.trace = trace })
}

// WithFileSystem overrides the FileSystem LOAD/SAVE/SAVEB/LOADB open files
// through, defaulting to the os package.
func WithFileSystem(fs FileSystem) VMOption {
	return optionFunc(func(cfg *config) { cfg.fs = fs })
}

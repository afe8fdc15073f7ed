package byteforth

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/jcorbin/byteforth/internal/flushio"
)

// FileSystem is the capability LOAD/SAVE/SAVEB/LOADB open files through. The
// default implementation delegates to the os package; tests substitute an
// in-memory one so file-backed directives stay unit-testable without
// touching disk.
type FileSystem interface {
	OpenRead(name string) (io.ReadCloser, error)
	OpenWrite(name string) (io.WriteCloser, error)
}

type osFileSystem struct{}

func (osFileSystem) OpenRead(name string) (io.ReadCloser, error)  { return os.Open(name) }
func (osFileSystem) OpenWrite(name string) (io.WriteCloser, error) { return os.Create(name) }

// Location names a line within a queued input stream, for diagnostics.
type Location struct {
	Name string
	Line int
}

func (loc Location) String() string { return fmt.Sprintf("%v:%v", loc.Name, loc.Line) }

// IO is the VM's byte-oriented input/output capability: KEY reads one raw
// byte at a time (never decoding it as part of a UTF-8 sequence), and
// EMIT/CR/TYPE write raw bytes through a flushing writer.
//
// This is a from-scratch byte-oriented rewrite of the teacher's
// rune-decoding input queue: the spec's KEY/EMIT are defined over raw
// bytes, not code points, so runeio's decoding step has no place here.
type IO struct {
	br    *bufio.Reader
	queue []io.Reader

	loc Location

	out flushio.WriteFlusher
	fs  FileSystem
}

func newIO(in io.Reader, out io.Writer, fs FileSystem) *IO {
	if fs == nil {
		fs = osFileSystem{}
	}
	vio := &IO{out: flushio.NewWriteFlusher(out), fs: fs}
	if in != nil {
		vio.queue = append(vio.queue, in)
	}
	return vio
}

// OpenRead opens name for LOAD/LOADB through the configured FileSystem.
func (vio *IO) OpenRead(name string) (io.ReadCloser, error) { return vio.fs.OpenRead(name) }

// OpenWrite creates or truncates name for SAVE/SAVEB through the configured
// FileSystem.
func (vio *IO) OpenWrite(name string) (io.WriteCloser, error) { return vio.fs.OpenWrite(name) }

// PushInput queues an additional reader behind any already queued, named for
// diagnostics.
func (vio *IO) PushInput(r io.Reader, name string) {
	vio.queue = append(vio.queue, namedReader{r, name})
}

type namedReader struct {
	io.Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }

// ReadByte reads the next input byte, advancing to the next queued reader
// (and tracking line numbers) transparently at end of stream.
func (vio *IO) ReadByte() (byte, error) {
	for {
		if vio.br == nil {
			if !vio.nextReader() {
				return 0, io.EOF
			}
		}
		b, err := vio.br.ReadByte()
		if err == nil {
			if b == '\n' {
				vio.loc.Line++
			}
			return b, nil
		}
		vio.br = nil
		if err != io.EOF {
			return 0, err
		}
	}
}

func (vio *IO) nextReader() bool {
	if len(vio.queue) == 0 {
		return false
	}
	r := vio.queue[0]
	vio.queue = vio.queue[1:]
	vio.br = bufio.NewReader(r)
	vio.loc = Location{Name: nameOf(r), Line: 1}
	return true
}

// CurrentLocation reports the name and line number of the input currently being
// read, for compiler diagnostics.
func (vio *IO) CurrentLocation() Location { return vio.loc }

func nameOf(obj interface{}) string {
	if nom, ok := obj.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", obj)
}

// WriteByte writes a single output byte and flushes, matching the reference
// VM's default_putchar/default_flush pairing (EMIT/CR/TYPE flush after
// every write so a REPL session's output interleaves predictably with its
// prompt).
func (vio *IO) WriteByte(b byte) error {
	if _, err := vio.out.Write([]byte{b}); err != nil {
		return err
	}
	return vio.out.Flush()
}

// WriteString writes a raw byte string (used by TYPE) and flushes once at
// the end.
func (vio *IO) WriteString(s string) error {
	if _, err := io.WriteString(vio.out, s); err != nil {
		return err
	}
	return vio.out.Flush()
}

// Write implements io.Writer directly against the output stream, for
// directives like SEE/LIST/WORDS that format larger chunks of text at once.
func (vio *IO) Write(p []byte) (int, error) {
	n, err := vio.out.Write(p)
	if err == nil {
		err = vio.out.Flush()
	}
	return n, err
}

package byteforth

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFS is an in-memory FileSystem for LOAD/SAVE/SAVEB/LOADB tests, so they
// never touch disk.
type memFS struct {
	files map[string][]byte
}

func newMemFS() *memFS { return &memFS{files: map[string][]byte{}} }

func (fs *memFS) OpenRead(name string) (io.ReadCloser, error) {
	data, ok := fs.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type memWriter struct {
	fs   *memFS
	name string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *memWriter) Close() error {
	w.fs.files[w.name] = w.buf.Bytes()
	return nil
}

func (fs *memFS) OpenWrite(name string) (io.WriteCloser, error) {
	return &memWriter{fs: fs, name: name}, nil
}

func TestSaveBinaryLoadBinaryRoundTrip(t *testing.T) {
	vm := New()
	c := NewCompiler(context.Background(), vm)
	require.NoError(t, c.InterpretLine(": SQ DUP * ;"))
	require.NoError(t, c.InterpretLine("VARIABLE X"))
	require.NoError(t, c.InterpretLine("42 X !"))

	var buf bytes.Buffer
	require.NoError(t, vm.SaveImage(&buf))

	fresh := New()
	require.NoError(t, fresh.LoadImage(bytes.NewReader(buf.Bytes())))

	assert.Equal(t, vm.Image.Here(), fresh.Image.Here())
	assert.Equal(t, vm.Image.WordCount(), fresh.Image.WordCount())
	assert.Equal(t, vm.Image.BuiltinCount(), fresh.Image.BuiltinCount())

	// Behavior after reload must match the original on any input: SQ still
	// squares, and X still reads back the value stored before the snapshot.
	fc := NewCompiler(context.Background(), fresh)
	require.NoError(t, fc.InterpretLine("7 SQ"))
	assert.Equal(t, int32(49), fresh.Data.Pop())

	require.NoError(t, fc.InterpretLine("X @"))
	assert.Equal(t, int32(42), fresh.Data.Pop())
}

func TestLoadImageRejectsBadMagic(t *testing.T) {
	vm := New()
	buf := make([]byte, 16)
	err := vm.LoadImage(bytes.NewReader(buf))
	require.Error(t, err)
	var ie ImageError
	assert.ErrorAs(t, err, &ie)
}

func TestLoadImageRejectsOversizeDictionary(t *testing.T) {
	big := New(WithDictSize(4096))
	c := NewCompiler(context.Background(), big)
	require.NoError(t, c.InterpretLine("1000 ALLOT"))

	var buf bytes.Buffer
	require.NoError(t, big.SaveImage(&buf))

	small := New(WithDictSize(256))
	err := small.LoadImage(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
}

func TestLoadImageRejectsWrongVersion(t *testing.T) {
	vm := New()
	var buf bytes.Buffer
	require.NoError(t, vm.SaveImage(&buf))
	raw := buf.Bytes()
	raw[4] = 99 // corrupt the version field
	err := vm.LoadImage(bytes.NewReader(raw))
	require.Error(t, err)
}

func TestSaveSourceEmitsUserWordsOnly(t *testing.T) {
	vm := New()
	c := NewCompiler(context.Background(), vm)
	require.NoError(t, c.InterpretLine(": SQ DUP * ;"))

	var out strings.Builder
	require.NoError(t, vm.SaveSource(&out))
	text := out.String()
	assert.Contains(t, text, ": SQ")
	assert.Contains(t, text, "DUP")
	assert.Contains(t, text, "*")
	// Builtins themselves are never re-emitted by SAVE.
	assert.NotContains(t, text, ": DUP")
}

func TestSaveSourceRecognizesDotQuotePattern(t *testing.T) {
	vm := New()
	c := NewCompiler(context.Background(), vm)
	require.NoError(t, c.InterpretLine(`: G ." hi" ;`))

	var out strings.Builder
	require.NoError(t, vm.SaveSource(&out))
	assert.Contains(t, out.String(), `." hi"`)
}

func TestSeeDecompilesIfElseThen(t *testing.T) {
	vm := New()
	c := NewCompiler(context.Background(), vm)
	require.NoError(t, c.InterpretLine(": T 10 5 > IF 42 ELSE 99 THEN ;"))

	var out strings.Builder
	require.NoError(t, vm.See(&out, "T"))
	text := out.String()
	assert.Contains(t, text, ": T")
	assert.Contains(t, text, "BRANCH0")
	assert.Contains(t, text, ";")
}

func TestSeeUnknownWordReportsQuestionMark(t *testing.T) {
	vm := New()
	var out strings.Builder
	require.NoError(t, vm.See(&out, "NOSUCHWORD"))
	assert.Contains(t, out.String(), "? NOSUCHWORD")
}

func TestLoadSaveDirectivesThroughFileSystem(t *testing.T) {
	fs := newMemFS()
	vm := New(WithFileSystem(fs))
	c := NewCompiler(context.Background(), vm)
	require.NoError(t, c.InterpretLine(": SQ DUP * ;"))
	require.NoError(t, c.InterpretLine("SAVE out.fs"))
	require.Contains(t, fs.files, "out.fs")
	assert.Contains(t, string(fs.files["out.fs"]), ": SQ")

	require.NoError(t, c.InterpretLine("SAVEB out.fbc"))
	require.Contains(t, fs.files, "out.fbc")

	fresh := New(WithFileSystem(fs))
	fc := NewCompiler(context.Background(), fresh)
	require.NoError(t, fc.InterpretLine("LOADB out.fbc"))
	require.NoError(t, fc.InterpretLine("9 SQ"))
	assert.Equal(t, int32(81), fresh.Data.Pop())
}

func TestLoadDirectiveInterpretsSourceFile(t *testing.T) {
	fs := newMemFS()
	fs.files["defs.fs"] = []byte(": DOUBLE 2 * ;\n")
	vm := New(WithFileSystem(fs))
	c := NewCompiler(context.Background(), vm)
	require.NoError(t, c.InterpretLine("LOAD defs.fs"))
	require.NoError(t, c.InterpretLine("21 DOUBLE"))
	assert.Equal(t, int32(42), vm.Data.Pop())
}

func TestLoadDirectiveMissingFileIsFileError(t *testing.T) {
	fs := newMemFS()
	vm := New(WithFileSystem(fs))
	c := NewCompiler(context.Background(), vm)
	err := c.InterpretLine("LOAD nope.fs")
	require.Error(t, err)
	var fe FileError
	assert.ErrorAs(t, err, &fe)
}

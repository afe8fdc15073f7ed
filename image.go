package byteforth

import "encoding/binary"

// Default capacities, matching the reference VM's configuration constants
// (FF_DICT_SIZE, FF_MAX_WORDS, FF_NAME_MAX).
const (
	DefaultDictSize = 4096
	DefaultMaxWords = 128
	NameMax         = 15
)

// Image is the byte-addressed dictionary arena plus its word table. It is
// pure data: appending bytecode, patching a forward-branch address, and
// looking up a word by name are its only behaviors.
//
// The dictionary never grows past its configured capacity and nothing is
// ever reclaimed from it; it is an arena for the lifetime of the VM.
type Image struct {
	dict []byte // len == capacity; bytes at [0:here) are live
	here uint16

	words        []WordEntry
	maxWords     int
	builtinCount int
}

// WordEntry is a single dictionary entry: an up-cased name, the address of
// its body, and a reserved flags byte (never interpreted by this engine;
// carried only so the binary image format has somewhere to grow).
type WordEntry struct {
	Name  string
	Addr  uint16
	Flags byte
}

// NewImage allocates a dictionary of the given capacity and a word table
// with room for maxWords entries. A zero value for either falls back to the
// reference defaults.
func NewImage(dictSize, maxWords int) *Image {
	if dictSize <= 0 {
		dictSize = DefaultDictSize
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &Image{
		dict:     make([]byte, dictSize),
		maxWords: maxWords,
	}
}

// Here returns the dictionary cursor: the address of the first unused byte.
func (img *Image) Here() uint16 { return img.here }

// Cap returns the dictionary's fixed capacity.
func (img *Image) Cap() int { return len(img.dict) }

// SetHere moves the dictionary cursor directly, used by LOADB to restore a
// snapshot. It does not validate against word bodies; callers are
// responsible for only ever shrinking or growing it consistently.
func (img *Image) SetHere(here uint16) { img.here = here }

// EmitByte appends a single byte at HERE and advances it, returning false
// (without writing) if the dictionary is full.
func (img *Image) EmitByte(b byte) bool {
	if int(img.here) >= len(img.dict) {
		return false
	}
	img.dict[img.here] = b
	img.here++
	return true
}

// EmitAddr appends a 2-byte little-endian address.
func (img *Image) EmitAddr(a uint16) bool {
	return img.EmitByte(byte(a)) && img.EmitByte(byte(a>>8))
}

// EmitCell appends a 4-byte little-endian cell.
func (img *Image) EmitCell(c int32) bool {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(c))
	for _, b := range buf {
		if !img.EmitByte(b) {
			return false
		}
	}
	return true
}

// Reserve appends n zero bytes, returning the address of the first one, for
// use as a not-yet-known forward-branch operand. It reports false (without
// reserving any of the n bytes) if there isn't room for all of them.
func (img *Image) Reserve(n int) (addr uint16, ok bool) {
	addr = img.here
	if n < 0 || int(img.here)+n > len(img.dict) {
		return addr, false
	}
	for i := 0; i < n; i++ {
		img.EmitByte(0)
	}
	return addr, true
}

// LoadByte reads one byte. Out-of-range addresses read as 0 (§4.1 bounds
// policy), never as an error.
func (img *Image) LoadByte(addr uint16) byte {
	if int(addr) >= len(img.dict) {
		return 0
	}
	return img.dict[addr]
}

// StoreByte writes one byte. Out-of-range addresses are a silent no-op.
func (img *Image) StoreByte(addr uint16, v byte) {
	if int(addr) >= len(img.dict) {
		return
	}
	img.dict[addr] = v
}

// LoadAddr reads a 2-byte little-endian address.
func (img *Image) LoadAddr(addr uint16) uint16 {
	return uint16(img.LoadByte(addr)) | uint16(img.LoadByte(addr+1))<<8
}

// StoreAddr writes a 2-byte little-endian address in place, the mechanism
// used to patch forward branches once their target is known.
func (img *Image) StoreAddr(addr, v uint16) {
	img.StoreByte(addr, byte(v))
	img.StoreByte(addr+1, byte(v>>8))
}

// LoadCell reads a 4-byte little-endian cell.
func (img *Image) LoadCell(addr uint16) int32 {
	var buf [4]byte
	for i := range buf {
		buf[i] = img.LoadByte(addr + uint16(i))
	}
	return int32(binary.LittleEndian.Uint32(buf[:]))
}

// StoreCell writes a 4-byte little-endian cell.
func (img *Image) StoreCell(addr uint16, v int32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	for i, b := range buf {
		img.StoreByte(addr+uint16(i), b)
	}
}

// AddWord appends a new word entry. It reports false if the word table is
// full.
func (img *Image) AddWord(name string, addr uint16) bool {
	if len(img.words) >= img.maxWords {
		return false
	}
	img.words = append(img.words, WordEntry{Name: name, Addr: addr})
	return true
}

// Lookup scans the word table newest-to-oldest and returns the first entry
// whose name matches, so that redefining a word shadows earlier entries for
// future lookups without disturbing call sites already compiled against the
// old address.
func (img *Image) Lookup(name string) (WordEntry, bool) {
	for i := len(img.words) - 1; i >= 0; i-- {
		if img.words[i].Name == name {
			return img.words[i], true
		}
	}
	return WordEntry{}, false
}

// Words returns the live word table, oldest first. Callers must not mutate
// the returned slice.
func (img *Image) Words() []WordEntry { return img.words }

// WordCount returns the number of defined words, builtin and user alike.
func (img *Image) WordCount() int { return len(img.words) }

// MarkBuiltinBoundary records the current word count as the builtin/user
// boundary (BUILTIN_COUNT), called once after the initial primitive words
// have been installed.
func (img *Image) MarkBuiltinBoundary() { img.builtinCount = len(img.words) }

// BuiltinCount returns the recorded builtin/user boundary.
func (img *Image) BuiltinCount() int { return img.builtinCount }

// UserWords returns the word entries defined after the builtin boundary, in
// definition order, for use by the textual SAVE directive.
func (img *Image) UserWords() []WordEntry {
	if img.builtinCount >= len(img.words) {
		return nil
	}
	return img.words[img.builtinCount:]
}

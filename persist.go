package byteforth

import (
	"encoding/binary"
	"io"
)

// imageMagic and imageVersion identify a saved binary image, matching the
// reference format's "FTTH" magic number and version 1.
const (
	imageMagic   uint32 = 0x46545448
	imageVersion uint16 = 1
)

// wordEntrySize is the fixed, explicitly little-endian on-disk size of one
// word table entry: a zero-padded NameMax+1 name field, a 2-byte address,
// and a 1-byte flags field. The reference implementation writes its word_t
// C struct natively, whose layout (including compiler-inserted padding)
// depends on the target's ABI; a portable format needs an explicit
// fixed-width re-specification instead, so this is that re-specification.
const wordEntrySize = NameMax + 1 + 2 + 1

// SaveImage writes a binary snapshot of the dictionary and word table to w,
// readable back by LoadImage (the SAVEB/LOADB directives).
func (vm *VM) SaveImage(w io.Writer) error {
	var header [4 + 2 + 2 + 4 + 4]byte
	binary.LittleEndian.PutUint32(header[0:4], imageMagic)
	binary.LittleEndian.PutUint16(header[4:6], imageVersion)
	binary.LittleEndian.PutUint16(header[6:8], vm.Image.Here())
	binary.LittleEndian.PutUint32(header[8:12], uint32(vm.Image.WordCount()))
	binary.LittleEndian.PutUint32(header[12:16], uint32(vm.Image.BuiltinCount()))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	if _, err := w.Write(vm.Image.dict[:vm.Image.Here()]); err != nil {
		return err
	}

	buf := make([]byte, wordEntrySize)
	for _, word := range vm.Image.Words() {
		for i := range buf {
			buf[i] = 0
		}
		copy(buf[:NameMax+1], word.Name)
		binary.LittleEndian.PutUint16(buf[NameMax+1:NameMax+3], word.Addr)
		buf[NameMax+3] = word.Flags
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// LoadImage reads a binary snapshot written by SaveImage, replacing this
// VM's dictionary contents and word table entirely. It validates the magic
// number, version, and that the saved sizes fit this VM's configured
// capacity before mutating any state.
func (vm *VM) LoadImage(r io.Reader) error {
	var header [4 + 2 + 2 + 4 + 4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return ImageError{Reason: "short header: " + err.Error()}
	}
	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != imageMagic {
		return ImageError{Reason: "bad magic"}
	}
	version := binary.LittleEndian.Uint16(header[4:6])
	if version != imageVersion {
		return ImageError{Reason: "unsupported version"}
	}
	here := binary.LittleEndian.Uint16(header[6:8])
	wordCount := binary.LittleEndian.Uint32(header[8:12])
	builtinCount := binary.LittleEndian.Uint32(header[12:16])

	if int(here) > vm.Image.Cap() {
		return ImageError{Reason: "dictionary too large for this VM"}
	}
	if int(wordCount) > vm.Image.maxWords {
		return ImageError{Reason: "word table too large for this VM"}
	}

	dict := make([]byte, here)
	if _, err := io.ReadFull(r, dict); err != nil {
		return ImageError{Reason: "short dictionary: " + err.Error()}
	}

	words := make([]WordEntry, wordCount)
	buf := make([]byte, wordEntrySize)
	for i := range words {
		if _, err := io.ReadFull(r, buf); err != nil {
			return ImageError{Reason: "short word table: " + err.Error()}
		}
		name := buf[:NameMax+1]
		if nul := indexByte(name, 0); nul >= 0 {
			name = name[:nul]
		}
		words[i] = WordEntry{
			Name:  string(name),
			Addr:  binary.LittleEndian.Uint16(buf[NameMax+1 : NameMax+3]),
			Flags: buf[NameMax+3],
		}
	}

	copy(vm.Image.dict, dict)
	vm.Image.here = here
	vm.Image.words = words
	vm.Image.builtinCount = int(builtinCount)
	return nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// See decompiles a single word's body to w as approximate source, matching
// the reference SEE/LIST directive's pattern-by-pattern formatting (one
// instruction per line, indented).
func (vm *VM) See(w io.Writer, name string) error {
	word, ok := vm.Image.Lookup(name)
	if !ok {
		io.WriteString(w, "? "+name+"\n")
		return nil
	}
	io.WriteString(w, ": "+word.Name+"\n")
	pc := word.Addr
	for pc < vm.Image.Here() {
		op := Op(vm.Image.LoadByte(pc))
		pc++
		io.WriteString(w, "  ")
		switch op {
		case OpExit:
			io.WriteString(w, ";\n")
			return nil
		case OpLit:
			val := vm.Image.LoadCell(pc)
			pc += 4
			io.WriteString(w, "LIT "+itoa(int(val))+"\n")
		case OpCall:
			addr := vm.Image.LoadAddr(pc)
			pc += 2
			io.WriteString(w, vm.nameAt(addr)+"\n")
		case OpBranch:
			target := vm.Image.LoadAddr(pc)
			pc += 2
			io.WriteString(w, "BRANCH -> "+itoa(int(target))+"\n")
		case OpBranchIfZero:
			target := vm.Image.LoadAddr(pc)
			pc += 2
			io.WriteString(w, "BRANCH0 -> "+itoa(int(target))+"\n")
		case OpLoop:
			target := vm.Image.LoadAddr(pc)
			pc += 2
			io.WriteString(w, "LOOP -> "+itoa(int(target))+"\n")
		default:
			io.WriteString(w, op.Name()+"\n")
		}
	}
	return nil
}

func (vm *VM) nameAt(addr uint16) string {
	for _, word := range vm.Image.Words() {
		if word.Addr == addr {
			return word.Name
		}
	}
	return "?"
}

// SaveSource writes every user-defined word (those past the builtin
// boundary) to w as reconstructed source text, matching the reference
// SAVE directive's decompiler: it recognizes the BRANCH/LIT/LIT/TYPE
// pattern emitted for ." and writes it back as a ." string, writes IF for
// every BRANCH0 (WHILE's included) and DO/LOOP for the loop opcodes, and
// otherwise falls back to one mnemonic per opcode. THEN, ELSE, BEGIN and
// REPEAT are never written, so a word using IF or BEGIN does not reload
// from this text as the same word. A bare BRANCH that isn't part of a
// recognized ." pattern is written as an
// honest "BRANCH <offset>" pseudo-token rather than guessed as ELSE, since
// nothing in a single decompile pass can tell ELSE's unconditional jump
// apart from any other forward branch without tracking IF/THEN nesting
// through the whole body.
func (vm *VM) SaveSource(w io.Writer) error {
	for _, word := range vm.Image.UserWords() {
		vm.saveWordSource(w, word)
	}
	return nil
}

func (vm *VM) saveWordSource(w io.Writer, word WordEntry) {
	io.WriteString(w, ": "+word.Name+" ")
	pc := word.Addr
	for pc < vm.Image.Here() {
		op := Op(vm.Image.LoadByte(pc))
		pc++
		switch op {
		case OpExit:
			io.WriteString(w, ";\n")
			return
		case OpLit:
			val := vm.Image.LoadCell(pc)
			pc += 4
			io.WriteString(w, itoa(int(val))+" ")
		case OpCall:
			addr := vm.Image.LoadAddr(pc)
			pc += 2
			io.WriteString(w, vm.nameAt(addr)+" ")
		case OpBranch:
			target := vm.Image.LoadAddr(pc)
			pc += 2
			if dotQuote, newPC, ok := vm.matchDotQuote(pc, target); ok {
				io.WriteString(w, dotQuote)
				pc = newPC
				continue
			}
			io.WriteString(w, "BRANCH "+itoa(int(target))+" ")
		case OpBranchIfZero:
			_ = vm.Image.LoadAddr(pc)
			pc += 2
			io.WriteString(w, "IF ")
		case OpLoop:
			_ = vm.Image.LoadAddr(pc)
			pc += 2
			io.WriteString(w, "LOOP ")
		case OpDo:
			io.WriteString(w, "DO ")
		case OpI:
			io.WriteString(w, "I ")
		default:
			io.WriteString(w, op.Name()+" ")
		}
	}
}

// matchDotQuote recognizes the BRANCH/LIT-addr/LIT-len/TYPE sequence the
// compiler emits for a ." string literal, and if it matches, returns the
// reconstructed ." source and the pc just past the TYPE opcode.
func (vm *VM) matchDotQuote(afterBranch, branchTarget uint16) (string, uint16, bool) {
	if branchTarget <= afterBranch || branchTarget > vm.Image.Here() {
		return "", 0, false
	}
	check := branchTarget
	if Op(vm.Image.LoadByte(check)) != OpLit {
		return "", 0, false
	}
	check++
	strAddr := vm.Image.LoadCell(check)
	check += 4
	if Op(vm.Image.LoadByte(check)) != OpLit {
		return "", 0, false
	}
	check++
	strLen := vm.Image.LoadCell(check)
	check += 4
	if Op(vm.Image.LoadByte(check)) != OpType {
		return "", 0, false
	}
	check++
	if uint16(strAddr) != afterBranch || uint16(strAddr)+uint16(strLen) != branchTarget {
		return "", 0, false
	}

	buf := make([]byte, strLen)
	for i := range buf {
		buf[i] = vm.Image.LoadByte(uint16(strAddr) + uint16(i))
	}
	s := ".\" "
	for _, c := range buf {
		if c == '"' || c == '\\' {
			s += "\\"
		}
		s += string(c)
	}
	s += "\" "
	return s, check, true
}

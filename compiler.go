package byteforth

import (
	"bufio"
	"context"
	"strconv"
)

// Compiler drives the single-pass interpreter/compiler over one line at a
// time: each token is resolved against the dictionary or as a literal, then
// either run immediately or compiled, depending on vm.compiling. Structural
// keywords (colon definitions and the control-flow words) are recognized
// here, ahead of ordinary word lookup, exactly as the reference
// interpret_line does.
type Compiler struct {
	vm  *VM
	ctx context.Context
}

// NewCompiler returns a Compiler bound to vm, running immediate words under
// ctx (so KEY, LOAD'd word execution, and so on observe the same
// cancellation the REPL's caller set up).
func NewCompiler(ctx context.Context, vm *VM) *Compiler {
	return &Compiler{vm: vm, ctx: ctx}
}

// InterpretLine compiles or runs every token of line in turn, stopping (and
// returning a non-nil error) at the first one that fails. A successfully
// consumed BYE/QUIT/CLI-EXIT token returns ErrBye so the caller can
// distinguish a clean request to stop from a real failure.
func (c *Compiler) InterpretLine(line string) error {
	vm := c.vm
	t := NewTokenizer(line)
	for {
		tok, ok := t.Next()
		if !ok {
			return nil
		}

		switch tok {
		case "(":
			skipParenComment(t)
			continue

		case ":":
			name, ok := t.Next()
			if !ok {
				return StructuralError{Keyword: ":", Reason: "needs a name", Loc: vm.io.CurrentLocation()}
			}
			addr := vm.Image.Here()
			if !vm.Image.AddWord(name, addr) {
				return OverflowError{What: "word table"}
			}
			vm.compiling = true
			continue

		case ";":
			if !vm.compiling {
				return StructuralError{Keyword: ";", Reason: "without :", Loc: vm.io.CurrentLocation()}
			}
			if !vm.Image.EmitByte(byte(OpExit)) {
				return OverflowError{What: "dictionary"}
			}
			vm.compiling = false
			continue

		case "BYE", "QUIT", "EXIT":
			return ErrBye

		case "CONSTANT":
			if err := c.compileConstant(t); err != nil {
				return err
			}
			continue

		case "VARIABLE":
			if err := c.compileVariable(t); err != nil {
				return err
			}
			continue

		case "SEE", "LIST":
			name, ok := t.Next()
			if !ok {
				return StructuralError{Keyword: tok, Reason: "needs a word name", Loc: vm.io.CurrentLocation()}
			}
			vm.See(vm.io, name)
			continue

		case "LOAD":
			if err := c.doLoad(t); err != nil {
				return err
			}
			continue

		case "SAVE":
			if err := c.doSave(t); err != nil {
				return err
			}
			continue

		case "SAVEB":
			if err := c.doSaveBinary(t); err != nil {
				return err
			}
			continue

		case "LOADB":
			if err := c.doLoadBinary(t); err != nil {
				return err
			}
			continue

		case `."`:
			if err := c.compileDotQuote(t); err != nil {
				return err
			}
			continue

		case "IF":
			if !vm.compiling {
				return StructuralError{Keyword: "IF", Reason: "only works in compilation mode", Loc: vm.io.CurrentLocation()}
			}
			vm.Image.EmitByte(byte(OpBranchIfZero))
			patchAt, _ := vm.Image.Reserve(2)
			vm.pushControl(patchAt)
			continue

		case "THEN":
			if !vm.compiling {
				return StructuralError{Keyword: "THEN", Reason: "only works in compilation mode", Loc: vm.io.CurrentLocation()}
			}
			ifAddr, ok := vm.popControl()
			if !ok {
				return StructuralError{Keyword: "THEN", Reason: "without IF", Loc: vm.io.CurrentLocation()}
			}
			vm.Image.StoreAddr(ifAddr, vm.Image.Here())
			continue

		case "ELSE":
			if !vm.compiling {
				return StructuralError{Keyword: "ELSE", Reason: "only works in compilation mode", Loc: vm.io.CurrentLocation()}
			}
			ifAddr, ok := vm.popControl()
			if !ok {
				return StructuralError{Keyword: "ELSE", Reason: "without IF", Loc: vm.io.CurrentLocation()}
			}
			vm.Image.EmitByte(byte(OpBranch))
			elseAddr, _ := vm.Image.Reserve(2)
			vm.Image.StoreAddr(ifAddr, vm.Image.Here())
			vm.pushControl(elseAddr)
			continue

		case "DO":
			if !vm.compiling {
				return StructuralError{Keyword: "DO", Reason: "only works in compilation mode", Loc: vm.io.CurrentLocation()}
			}
			vm.Image.EmitByte(byte(OpDo))
			vm.pushControl(vm.Image.Here())
			continue

		case "LOOP":
			if !vm.compiling {
				return StructuralError{Keyword: "LOOP", Reason: "only works in compilation mode", Loc: vm.io.CurrentLocation()}
			}
			loopStart, ok := vm.popControl()
			if !ok {
				return StructuralError{Keyword: "LOOP", Reason: "without DO", Loc: vm.io.CurrentLocation()}
			}
			vm.Image.EmitByte(byte(OpLoop))
			vm.Image.EmitAddr(loopStart)
			continue

		case "BEGIN":
			if !vm.compiling {
				return StructuralError{Keyword: "BEGIN", Reason: "only works in compilation mode", Loc: vm.io.CurrentLocation()}
			}
			vm.pushControl(vm.Image.Here())
			continue

		case "WHILE":
			if !vm.compiling || vm.controlDepth() == 0 {
				return StructuralError{Keyword: "WHILE", Reason: "without BEGIN", Loc: vm.io.CurrentLocation()}
			}
			vm.Image.EmitByte(byte(OpBranchIfZero))
			patchAt, _ := vm.Image.Reserve(2)
			vm.pushControl(patchAt)
			continue

		case "REPEAT":
			if !vm.compiling || vm.controlDepth() < 2 {
				return StructuralError{Keyword: "REPEAT", Reason: "without BEGIN/WHILE", Loc: vm.io.CurrentLocation()}
			}
			whileAddr, _ := vm.popControl()
			beginAddr, _ := vm.popControl()
			vm.Image.EmitByte(byte(OpBranch))
			vm.Image.EmitAddr(beginAddr)
			vm.Image.StoreAddr(whileAddr, vm.Image.Here())
			continue

		case "I":
			// I is inlined directly, never compiled as a call, so that a
			// word using it can be called from inside any enclosing loop.
			if vm.compiling {
				vm.Image.EmitByte(byte(OpI))
			} else if vm.Ret.Depth() >= 2 {
				vm.Data.Push(vm.Ret.Peek(0))
			}
			continue
		}

		if err := c.interpretToken(tok); err != nil {
			return err
		}
	}
}

// ErrBye is returned by InterpretLine when the line contained BYE, QUIT, or
// a bare EXIT token, signaling the REPL to stop reading further input.
var ErrBye = bye{}

type bye struct{}

func (bye) Error() string { return "bye" }

func skipParenComment(t *Tokenizer) {
	rest := t.Rest()
	end := indexByteStr(rest, ')')
	if end < 0 {
		t.Advance(len(rest))
		return
	}
	t.Advance(end + 1)
}

func (c *Compiler) interpretToken(tok string) error {
	vm := c.vm
	if word, ok := vm.Image.Lookup(tok); ok {
		if vm.compiling {
			vm.Image.EmitByte(byte(OpCall))
			vm.Image.EmitAddr(word.Addr)
		} else {
			return vm.Execute(c.ctx, word.Addr)
		}
		return nil
	}

	if val, ok := parseLiteral(tok); ok {
		if vm.compiling {
			vm.Image.EmitByte(byte(OpLit))
			vm.Image.EmitCell(val)
		} else {
			vm.Data.Push(val)
		}
		return nil
	}

	return CompileError{Token: tok, Loc: vm.io.CurrentLocation()}
}

// parseLiteral accepts a plain, optionally-signed decimal integer and
// nothing else: no char-literal syntax, no hex or other bases, matching
// the reference tokenizer's plain strtol(tok, &end, 10) call exactly.
func parseLiteral(tok string) (int32, bool) {
	if tok == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

func (c *Compiler) compileConstant(t *Tokenizer) error {
	vm := c.vm
	name, ok := t.Next()
	if !ok {
		return StructuralError{Keyword: "CONSTANT", Reason: "needs a name", Loc: vm.io.CurrentLocation()}
	}
	if vm.Data.Depth() < 1 {
		return StructuralError{Keyword: "CONSTANT", Reason: "needs a value on stack", Loc: vm.io.CurrentLocation()}
	}
	val := vm.Data.Pop()
	addr := vm.Image.Here()
	vm.Image.EmitByte(byte(OpLit))
	vm.Image.EmitCell(val)
	vm.Image.EmitByte(byte(OpExit))
	if !vm.Image.AddWord(name, addr) {
		return OverflowError{What: "word table"}
	}
	return nil
}

func (c *Compiler) compileVariable(t *Tokenizer) error {
	vm := c.vm
	name, ok := t.Next()
	if !ok {
		return StructuralError{Keyword: "VARIABLE", Reason: "needs a name", Loc: vm.io.CurrentLocation()}
	}
	varAddr, ok := vm.Image.Reserve(4)
	if !ok {
		return OverflowError{What: "dictionary"}
	}
	wordAddr := vm.Image.Here()
	vm.Image.EmitByte(byte(OpLit))
	vm.Image.EmitCell(int32(varAddr))
	vm.Image.EmitByte(byte(OpExit))
	if !vm.Image.AddWord(name, wordAddr) {
		return OverflowError{What: "word table"}
	}
	return nil
}

// compileDotQuote handles ." by emitting the same BRANCH/string/LIT/LIT/
// TYPE pattern the reference compiler emits, so that SAVE's decompiler can
// recognize it again later; in immediate mode it writes the string out
// directly instead.
func (c *Compiler) compileDotQuote(t *Tokenizer) error {
	vm := c.vm
	t.SkipSpace()
	rest := t.Rest()
	end := indexByteStr(rest, '"')
	if end < 0 {
		return StructuralError{Keyword: `."`, Reason: "unterminated string", Loc: vm.io.CurrentLocation()}
	}
	str := rest[:end]
	t.Advance(end + 1)

	if !vm.compiling {
		vm.io.WriteString(str)
		return nil
	}

	vm.Image.EmitByte(byte(OpBranch))
	branchAt, _ := vm.Image.Reserve(2)
	strAddr := vm.Image.Here()
	for i := 0; i < len(str); i++ {
		vm.Image.EmitByte(str[i])
	}
	vm.Image.StoreAddr(branchAt, vm.Image.Here())
	vm.Image.EmitByte(byte(OpLit))
	vm.Image.EmitCell(int32(strAddr))
	vm.Image.EmitByte(byte(OpLit))
	vm.Image.EmitCell(int32(len(str)))
	vm.Image.EmitByte(byte(OpType))
	return nil
}

func indexByteStr(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func (c *Compiler) doLoad(t *Tokenizer) error {
	t.SkipSpace()
	name := t.Rest()
	t.Advance(len(name))
	f, err := c.vm.io.OpenRead(name)
	if err != nil {
		return FileError{Op: "open", Name: name, Err: err}
	}
	defer f.Close()

	sub := NewCompiler(c.ctx, c.vm)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := sub.InterpretLine(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (c *Compiler) doSave(t *Tokenizer) error {
	t.SkipSpace()
	name := t.Rest()
	t.Advance(len(name))
	f, err := c.vm.io.OpenWrite(name)
	if err != nil {
		return FileError{Op: "write", Name: name, Err: err}
	}
	defer f.Close()
	return c.vm.SaveSource(f)
}

func (c *Compiler) doSaveBinary(t *Tokenizer) error {
	t.SkipSpace()
	name := t.Rest()
	t.Advance(len(name))
	f, err := c.vm.io.OpenWrite(name)
	if err != nil {
		return FileError{Op: "write", Name: name, Err: err}
	}
	defer f.Close()
	return c.vm.SaveImage(f)
}

func (c *Compiler) doLoadBinary(t *Tokenizer) error {
	t.SkipSpace()
	name := t.Rest()
	t.Advance(len(name))
	f, err := c.vm.io.OpenRead(name)
	if err != nil {
		return FileError{Op: "open", Name: name, Err: err}
	}
	defer f.Close()
	return c.vm.LoadImage(f)
}

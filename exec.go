package byteforth

import (
	"context"
	"errors"

	"github.com/jcorbin/byteforth/internal/panicerr"
)

// Execute runs the word body starting at addr to completion: an EXIT that
// finds the return stack back at the depth it had when Execute was entered
// (empty, for a top-level call) stops the call. Loop frames and other
// entries already on the return stack at entry are left in place, since
// all state lives in vm's stacks rather than on the Go call stack beyond
// the current frame.
//
// Execute runs the dispatch loop in its own goroutine so that a halt deep
// in a word body unwinds cleanly via panic/recover without ever escaping
// this call, the same isolation the reference VM's Run uses around its
// interpreter loop.
func (vm *VM) Execute(ctx context.Context, addr uint16) error {
	err := panicerr.Recover("vm", func() error {
		vm.execute(ctx, addr)
		return nil
	})
	if err == nil {
		return nil
	}
	var he haltError
	if errors.As(err, &he) {
		return he.error
	}
	return err
}

func (vm *VM) execute(ctx context.Context, addr uint16) {
	pc := addr
	depth0 := vm.Ret.Depth()
	for {
		select {
		case <-ctx.Done():
			halt(ctx.Err())
		default:
		}

		op := Op(vm.Image.LoadByte(pc))
		pc++

		if vm.traceExec {
			vm.log.Printf("TRACE", "pc=%d op=%s sp=%d rp=%d", pc-1, op.Name(), vm.Data.Depth(), vm.Ret.Depth())
		}

		switch op {
		case OpExit:
			if vm.Ret.Depth() <= depth0 {
				return
			}
			pc = uint16(vm.Ret.Pop())

		case OpLit:
			pc2 := pc
			pc += 4
			vm.Data.Push(vm.Image.LoadCell(pc2))

		case OpCall:
			target := vm.Image.LoadAddr(pc)
			pc += 2
			vm.Ret.Push(int32(pc))
			pc = target

		case OpAdd:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(a + b)
		case OpSub:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(a - b)
		case OpMul:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(a * b)
		case OpDiv:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			if b == 0 {
				vm.Data.Push(0)
			} else {
				vm.Data.Push(a / b)
			}

		case OpDup:
			if vm.Data.Depth() > 0 {
				vm.Data.Push(vm.Data.Peek(0))
			}
		case OpDrop:
			vm.Data.Pop()
		case OpSwap:
			if vm.Data.Depth() >= 2 {
				b, a := vm.Data.Pop(), vm.Data.Pop()
				vm.Data.Push(b)
				vm.Data.Push(a)
			}
		case OpOver:
			if vm.Data.Depth() >= 2 {
				vm.Data.Push(vm.Data.Peek(1))
			}
		case OpDot:
			if vm.Data.Depth() > 0 {
				vm.io.WriteString(itoa(int(vm.Data.Pop())) + " ")
			}

		case OpAnd:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(a & b)
		case OpOr:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(a | b)
		case OpXor:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(a ^ b)
		case OpNot:
			vm.Data.Push(^vm.Data.Pop())

		case OpLt:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(boolCell(a < b))
		case OpGt:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(boolCell(a > b))
		case OpEq:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(boolCell(a == b))
		case OpLe:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(boolCell(a <= b))
		case OpGe:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(boolCell(a >= b))
		case OpNe:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			vm.Data.Push(boolCell(a != b))

		case OpBranch:
			pc = vm.Image.LoadAddr(pc)
		case OpBranchIfZero:
			target := vm.Image.LoadAddr(pc)
			pc += 2
			if vm.Data.Pop() == 0 {
				pc = target
			}

		case OpDo:
			index := vm.Data.Pop()
			limit := vm.Data.Pop()
			vm.Ret.Push(limit)
			vm.Ret.Push(index)
		case OpLoop:
			loopAddr := vm.Image.LoadAddr(pc)
			pc += 2
			index := vm.Ret.Peek(0) + 1
			limit := vm.Ret.Peek(1)
			if index < limit {
				vm.Ret.cells[vm.Ret.sp-1] = index
				pc = loopAddr
			} else {
				vm.Ret.Pop()
				vm.Ret.Pop()
			}
		case OpI:
			if vm.Ret.Depth() >= 2 {
				vm.Data.Push(vm.Ret.Peek(0))
			}

		case OpLoad:
			addr := vm.Data.Pop()
			vm.Data.Push(vm.Image.LoadCell(uint16(addr)))
		case OpStore:
			addr := vm.Data.Pop()
			val := vm.Data.Pop()
			vm.Image.StoreCell(uint16(addr), val)
		case OpLoadByte:
			addr := vm.Data.Pop()
			vm.Data.Push(int32(vm.Image.LoadByte(uint16(addr))))
		case OpStoreByte:
			addr := vm.Data.Pop()
			val := vm.Data.Pop()
			vm.Image.StoreByte(uint16(addr), byte(val))

		case OpRot:
			if vm.Data.Depth() >= 3 {
				c := vm.Data.Peek(0)
				b := vm.Data.Peek(1)
				a := vm.Data.Peek(2)
				sp := vm.Data.sp
				vm.Data.cells[sp-3] = b
				vm.Data.cells[sp-2] = c
				vm.Data.cells[sp-1] = a
			}
		case Op2Dup:
			if vm.Data.Depth() >= 2 {
				a, b := vm.Data.Peek(1), vm.Data.Peek(0)
				vm.Data.Push(a)
				vm.Data.Push(b)
			}
		case Op2Drop:
			if vm.Data.Depth() >= 2 {
				vm.Data.Pop()
				vm.Data.Pop()
			}
		case OpNip:
			if vm.Data.Depth() >= 2 {
				top := vm.Data.Pop()
				vm.Data.Pop()
				vm.Data.Push(top)
			}
		case OpTuck:
			if vm.Data.Depth() >= 2 {
				b := vm.Data.Peek(0)
				a := vm.Data.Peek(1)
				sp := vm.Data.sp
				vm.Data.cells[sp-2] = b
				vm.Data.cells[sp-1] = a
				vm.Data.Push(b)
			}

		case OpToR:
			vm.Ret.Push(vm.Data.Pop())
		case OpRFrom:
			vm.Data.Push(vm.Ret.Pop())
		case OpRFetch:
			vm.Data.Push(vm.Ret.Peek(0))

		case OpMod:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			if b == 0 {
				vm.Data.Push(0)
			} else {
				vm.Data.Push(a % b)
			}
		case OpNegate:
			vm.Data.Push(-vm.Data.Pop())
		case OpAbs:
			a := vm.Data.Pop()
			if a < 0 {
				a = -a
			}
			vm.Data.Push(a)
		case OpMin:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			if a < b {
				vm.Data.Push(a)
			} else {
				vm.Data.Push(b)
			}
		case OpMax:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			if a > b {
				vm.Data.Push(a)
			} else {
				vm.Data.Push(b)
			}
		case OpDivMod:
			b, a := vm.Data.Pop(), vm.Data.Pop()
			if b == 0 {
				vm.Data.Push(0)
				vm.Data.Push(0)
			} else {
				vm.Data.Push(a % b)
				vm.Data.Push(a / b)
			}
		case Op1Plus:
			if vm.Data.Depth() > 0 {
				vm.Data.cells[vm.Data.sp-1]++
			}
		case Op1Minus:
			if vm.Data.Depth() > 0 {
				vm.Data.cells[vm.Data.sp-1]--
			}

		case OpZeroEq:
			vm.Data.Push(boolCell(vm.Data.Pop() == 0))
		case OpZeroLt:
			vm.Data.Push(boolCell(vm.Data.Pop() < 0))
		case OpZeroNe:
			vm.Data.Push(boolCell(vm.Data.Pop() != 0))

		case OpQDup:
			if vm.Data.Depth() > 0 && vm.Data.Peek(0) != 0 {
				vm.Data.Push(vm.Data.Peek(0))
			}

		case OpPlusStore:
			addr := vm.Data.Pop()
			val := vm.Data.Pop()
			vm.Image.StoreCell(uint16(addr), vm.Image.LoadCell(uint16(addr))+val)
		case OpAllot:
			n := vm.Data.Pop()
			if n > 0 {
				vm.Image.Reserve(int(n))
			}

		case OpEmit:
			vm.io.WriteByte(byte(vm.Data.Pop()))
		case OpKey:
			b, err := vm.io.ReadByte()
			if err != nil {
				vm.Data.Push(-1)
			} else {
				vm.Data.Push(int32(b))
			}
		case OpCr:
			vm.io.WriteByte('\n')
		case OpType:
			length := vm.Data.Pop()
			addr := vm.Data.Pop()
			vm.typeString(uint16(addr), length)

		case OpHere:
			vm.Data.Push(int32(vm.Image.Here()))

		case OpDotS:
			vm.writeStackTrace()
		case OpDepth:
			vm.Data.Push(int32(vm.Data.Depth()))
		case OpClear:
			vm.Data.Reset()
		case OpWords:
			vm.writeWordList()

		default:
			vm.log.Printf("ERROR", "unknown opcode %d at pc=%d", op, pc-1)
			return
		}
	}
}

func boolCell(b bool) int32 {
	if b {
		return -1
	}
	return 0
}

func (vm *VM) typeString(addr uint16, length int32) {
	if length <= 0 {
		return
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = vm.Image.LoadByte(addr + uint16(i))
	}
	vm.io.WriteString(string(buf))
}

func (vm *VM) writeStackTrace() {
	cells := vm.Data.Snapshot()
	s := "<" + itoa(len(cells)) + "> "
	for _, c := range cells {
		s += itoa(int(c)) + " "
	}
	vm.io.WriteString(s)
}

func (vm *VM) writeWordList() {
	s := "Words: "
	for _, w := range vm.Image.Words() {
		s += w.Name + " "
	}
	s += "\n"
	vm.io.WriteString(s)
}

package byteforth

// Op is a single-byte bytecode instruction. Values and ordering follow the
// reference instruction set; only OP_SEE is omitted; SEE/LIST are handled
// entirely inside the compiler and never appear as compiled bytecode.
type Op byte

const (
	OpExit Op = iota
	OpLit
	OpCall

	OpAdd
	OpSub
	OpMul
	OpDiv

	OpDup
	OpDrop
	OpSwap
	OpOver
	OpDot

	OpAnd
	OpOr
	OpXor
	OpNot

	OpLt
	OpGt
	OpEq
	OpLe
	OpGe
	OpNe

	OpBranch
	OpBranchIfZero

	OpDo
	OpLoop
	OpI

	OpLoad
	OpStore
	OpLoadByte
	OpStoreByte

	OpRot
	Op2Dup
	Op2Drop
	OpNip
	OpTuck

	OpToR
	OpRFrom
	OpRFetch

	OpMod
	OpNegate
	OpAbs
	OpMin
	OpMax
	OpDivMod
	Op1Plus
	Op1Minus

	OpZeroEq
	OpZeroLt
	OpZeroNe

	OpQDup

	OpPlusStore
	OpAllot

	OpEmit
	OpKey
	OpCr
	OpType

	OpHere

	OpDotS
	OpDepth
	OpClear
	OpWords

	opMax // sentinel; not a real instruction
)

// operandWidth gives the number of bytes immediately following an opcode
// byte that belong to it (0, 2 for an address, or 4 for a cell literal).
var operandWidth = [opMax]int{
	OpLit:          4,
	OpCall:         2,
	OpBranch:       2,
	OpBranchIfZero: 2,
	OpLoop:         2,
}

// OperandWidth returns how many trailing operand bytes follow op, 0 for
// opcodes with no inline operand.
func OperandWidth(op Op) int {
	if int(op) < 0 || int(op) >= len(operandWidth) {
		return 0
	}
	return operandWidth[op]
}

// opNames gives the source-level mnemonic for each opcode, used by the
// textual decompiler and by tracing.
var opNames = [opMax]string{
	OpExit:         "EXIT",
	OpLit:          "LIT",
	OpCall:         "CALL",
	OpAdd:          "+",
	OpSub:          "-",
	OpMul:          "*",
	OpDiv:          "/",
	OpDup:          "DUP",
	OpDrop:         "DROP",
	OpSwap:         "SWAP",
	OpOver:         "OVER",
	OpDot:          ".",
	OpAnd:          "AND",
	OpOr:           "OR",
	OpXor:          "XOR",
	OpNot:          "NOT",
	OpLt:           "<",
	OpGt:           ">",
	OpEq:           "=",
	OpLe:           "<=",
	OpGe:           ">=",
	OpNe:           "<>",
	OpBranch:       "BRANCH",
	OpBranchIfZero: "BRANCH0",
	OpDo:           "DO",
	OpLoop:         "LOOP",
	OpI:            "I",
	OpLoad:         "@",
	OpStore:        "!",
	OpLoadByte:     "C@",
	OpStoreByte:    "C!",
	OpRot:          "ROT",
	Op2Dup:         "2DUP",
	Op2Drop:        "2DROP",
	OpNip:          "NIP",
	OpTuck:         "TUCK",
	OpToR:          ">R",
	OpRFrom:        "R>",
	OpRFetch:       "R@",
	OpMod:          "MOD",
	OpNegate:       "NEGATE",
	OpAbs:          "ABS",
	OpMin:          "MIN",
	OpMax:          "MAX",
	OpDivMod:       "/MOD",
	Op1Plus:        "1+",
	Op1Minus:       "1-",
	OpZeroEq:       "0=",
	OpZeroLt:       "0<",
	OpZeroNe:       "0<>",
	OpQDup:         "?DUP",
	OpPlusStore:    "+!",
	OpAllot:        "ALLOT",
	OpEmit:         "EMIT",
	OpKey:          "KEY",
	OpCr:           "CR",
	OpType:         "TYPE",
	OpHere:         "HERE",
	OpDotS:         ".S",
	OpDepth:        "DEPTH",
	OpClear:        "CLEAR",
	OpWords:        "WORDS",
}

// Name returns op's source mnemonic, or a numeric fallback for an opcode
// value outside the known set (which can only arise from a corrupt or
// foreign image, since the compiler never emits one).
func (op Op) Name() string {
	if int(op) >= 0 && int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "OP_" + itoa(int(op))
}

// itoa formats n in decimal, for the output opcodes, tracing and the
// decompiler.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// builtinWord names the builtin words installed at VM construction, in
// installation order, each compiled as a single opcode followed by EXIT.
// This mirrors the reference VM's init_forth table exactly, including its
// ordering (which fixes the builtin/user boundary's address layout).
var builtinWords = []struct {
	name string
	op   Op
}{
	{"+", OpAdd},
	{"-", OpSub},
	{"*", OpMul},
	{"/", OpDiv},
	{"DUP", OpDup},
	{"DROP", OpDrop},
	{"SWAP", OpSwap},
	{"OVER", OpOver},
	{".", OpDot},
	{"AND", OpAnd},
	{"OR", OpOr},
	{"XOR", OpXor},
	{"NOT", OpNot},
	{"<", OpLt},
	{">", OpGt},
	{"=", OpEq},
	{"<=", OpLe},
	{">=", OpGe},
	{"<>", OpNe},
	{"@", OpLoad},
	{"!", OpStore},
	{"C@", OpLoadByte},
	{"C!", OpStoreByte},
	{"I", OpI},
	{"ROT", OpRot},
	{"2DUP", Op2Dup},
	{"2DROP", Op2Drop},
	{"NIP", OpNip},
	{"TUCK", OpTuck},
	{">R", OpToR},
	{"R>", OpRFrom},
	{"R@", OpRFetch},
	{"MOD", OpMod},
	{"NEGATE", OpNegate},
	{"ABS", OpAbs},
	{"MIN", OpMin},
	{"MAX", OpMax},
	{"/MOD", OpDivMod},
	{"1+", Op1Plus},
	{"1-", Op1Minus},
	{"0=", OpZeroEq},
	{"0<", OpZeroLt},
	{"0<>", OpZeroNe},
	{"?DUP", OpQDup},
	{"+!", OpPlusStore},
	{"ALLOT", OpAllot},
	{"EMIT", OpEmit},
	{"KEY", OpKey},
	{"CR", OpCr},
	{"HERE", OpHere},
	{".S", OpDotS},
	{"DEPTH", OpDepth},
	{"CLEAR", OpClear},
	{"WORDS", OpWords},
}

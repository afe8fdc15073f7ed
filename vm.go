package byteforth

import (
	"github.com/jcorbin/byteforth/internal/logio"
)

// ControlDepth is the fixed depth of the compile-time control stack used to
// patch IF/THEN/ELSE/DO/LOOP/BEGIN/WHILE/REPEAT, matching the reference
// compiler's cstack[32].
const ControlDepth = 32

// VM is the single owned aggregate tying together the dictionary image, the
// data and return stacks, the compile-time control stack, and the
// ambient I/O and logging capabilities. Outside this package only the
// exported Image, Data and Ret fields are reachable; construction goes
// through New and VMOption.
type VM struct {
	Image *Image
	Data  *DataStack
	Ret   *ReturnStack

	cstack [ControlDepth]uint16
	csp    int

	io  *IO
	log *logio.Logger

	compiling bool
	traceExec bool
}

// New builds a VM with its builtin word table installed, applying any
// options in order. Options that need to resize the dictionary or stacks
// must run before the builtin words are installed, so New defers
// installation until after all options have been applied.
func New(opts ...VMOption) *VM {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	vm := &VM{
		Image: NewImage(cfg.dictSize, cfg.maxWords),
		Data:  NewDataStack(cfg.stackDepth),
		Ret:   NewReturnStack(cfg.retDepth),
		io:    newIO(cfg.in, cfg.out, cfg.fs),
		log:   cfg.logger,
	}
	vm.traceExec = cfg.trace
	vm.installBuiltins()
	return vm
}

func (vm *VM) installBuiltins() {
	for _, b := range builtinWords {
		addr := vm.Image.Here()
		vm.Image.EmitByte(byte(b.op))
		vm.Image.EmitByte(byte(OpExit))
		vm.Image.AddWord(b.name, addr)
	}
	vm.Image.MarkBuiltinBoundary()
}

// Compiling reports whether the VM is currently inside a colon definition.
func (vm *VM) Compiling() bool { return vm.compiling }

// pushControl and popControl manage the compile-time-only patch-site stack;
// past its fixed depth, pushes are silently dropped and pops yield 0,
// consistent with the rest of the engine's lenient bounds policy.
func (vm *VM) pushControl(addr uint16) {
	if vm.csp >= len(vm.cstack) {
		return
	}
	vm.cstack[vm.csp] = addr
	vm.csp++
}

func (vm *VM) popControl() (uint16, bool) {
	if vm.csp == 0 {
		return 0, false
	}
	vm.csp--
	return vm.cstack[vm.csp], true
}

func (vm *VM) controlDepth() int { return vm.csp }

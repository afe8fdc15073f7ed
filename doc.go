// Package byteforth implements a compact bytecode virtual machine and
// incremental compiler for a stack-oriented, Forth-family concatenative
// language.
//
// The engine is built from four pieces that must stay consistent across
// interleaved definition and execution: a byte-addressed dictionary plus
// word table (Image), a dispatch loop over single-byte opcodes (VM.Execute),
// a token scanner (Tokenizer), and a single-pass interpreter/compiler
// (Compiler) that resolves each token against the dictionary or as a
// literal, either running it immediately or emitting bytecode for it.
//
// Unlike a traditional Forth, control-flow words (IF/THEN/ELSE/DO/LOOP/
// BEGIN/WHILE/REPEAT) are not bootstrapped from more primitive words; the
// compiler understands them structurally and patches forward branches
// directly, using a small compile-time-only stack of patch sites.
//
// A binary image of the dictionary and word table can be snapshotted to
// disk and reloaded (SAVEB/LOADB); a best-effort textual decompiler can
// also emit new source approximating a user-defined word's behavior
// (SAVE/SEE).
package byteforth

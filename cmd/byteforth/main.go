// Command byteforth runs an interactive REPL, or LOADs and runs a script
// file given as an argument; files ending in .fbc are treated as saved
// binary images (LOADB) rather than source text.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jcorbin/byteforth"
	"github.com/jcorbin/byteforth/internal/logio"
	"github.com/spf13/cobra"
)

func main() {
	log := logio.Logger{}
	log.SetOutput(os.Stderr)
	defer os.Exit(log.ExitCode())

	var (
		quiet   bool
		trace   bool
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:   "byteforth [file]",
		Short: "A compact stack-oriented bytecode VM and incremental compiler",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vm := byteforth.New(
				byteforth.WithInput(os.Stdin),
				byteforth.WithOutput(os.Stdout),
				byteforth.WithLogger(&log),
				byteforth.WithTrace(trace),
			)

			ctx := context.Background()
			if timeout != 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			if len(args) == 1 {
				return runFile(ctx, vm, args[0])
			}
			return repl(ctx, vm, quiet)
		},
	}
	root.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the \"ok\" prompt")
	root.Flags().BoolVar(&trace, "trace", false, "enable per-opcode TRACE logging")
	root.Flags().DurationVar(&timeout, "timeout", 0, "cancel execution after the given duration")

	root.AddCommand(benchCmd())

	if err := root.Execute(); err != nil {
		log.Errorf("%v", err)
	}
}

func runFile(ctx context.Context, vm *byteforth.VM, name string) error {
	if strings.HasSuffix(strings.ToLower(name), ".fbc") {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		return vm.LoadImage(f)
	}

	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	c := byteforth.NewCompiler(ctx, vm)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := c.InterpretLine(scanner.Text()); err != nil {
			if err == byteforth.ErrBye {
				return nil
			}
			return err
		}
	}
	return scanner.Err()
}

func repl(ctx context.Context, vm *byteforth.VM, quiet bool) error {
	c := byteforth.NewCompiler(ctx, vm)
	in := bufio.NewScanner(os.Stdin)
	for {
		if !quiet {
			if vm.Compiling() {
				fmt.Print("  ")
			} else {
				fmt.Print("ok ")
			}
		}
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		if err := c.InterpretLine(in.Text()); err != nil {
			if err == byteforth.ErrBye {
				return nil
			}
			fmt.Fprintf(os.Stderr, "? %v\n", err)
		} else if !vm.Compiling() {
			fmt.Println()
		}
	}
}

func benchCmd() *cobra.Command {
	var pure bool
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the reference word-call microbenchmarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			vm := byteforth.New()
			ctx := context.Background()
			c := byteforth.NewCompiler(ctx, vm)

			defs := []string{
				": NOP ;",
				": ADD2 + + ;",
				": ADD3 + + + ;",
				": SUM 0 SWAP 0 DO I + LOOP ;",
				": BITOPS DUP AND DUP OR XOR ;",
				": TEST-IF 10 5 > IF 42 ELSE 99 THEN ;",
				": LOOP10 10 0 DO LOOP ;",
				": LOOP100 100 0 DO LOOP ;",
			}
			for _, d := range defs {
				if err := c.InterpretLine(d); err != nil {
					return err
				}
			}

			cases := []string{"NOP", "ADD2 1 2", "ADD3 1 2 3", "SUM 10", "BITOPS 7", "TEST-IF", "LOOP10", "LOOP100"}
			iterations := 1_000_000
			if pure {
				iterations = 10_000_000
			}

			fmt.Println("Comprehensive Forth VM Benchmark")
			fmt.Println("================================")
			for _, code := range cases {
				runBenchCase(c, vm, code, iterations)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&pure, "pure", false, "use the reference implementation's higher pure-dispatch iteration count")
	return cmd
}

func runBenchCase(c *byteforth.Compiler, vm *byteforth.VM, code string, iterations int) {
	t0 := time.Now()
	for i := 0; i < iterations; i++ {
		vm.Data.Reset()
		vm.Ret.Reset()
		c.InterpretLine(code)
	}
	elapsed := time.Since(t0)
	rate := float64(iterations) / elapsed.Seconds()
	nsPerCall := elapsed.Seconds() * 1e9 / float64(iterations)
	fmt.Printf("%-30s %8.2f M calls/sec  (%6.2f ns/call)\n", code, rate/1e6, nsPerCall)
}

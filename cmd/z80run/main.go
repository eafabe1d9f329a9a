package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/oisee/z80core/pkg/bus"
	"github.com/oisee/z80core/pkg/console"
	"github.com/oisee/z80core/pkg/cpu"
	"github.com/oisee/z80core/pkg/device"
	"github.com/oisee/z80core/pkg/difftest"
	"github.com/oisee/z80core/pkg/disasm"
	"github.com/oisee/z80core/pkg/monitor"
	"github.com/oisee/z80core/pkg/trace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "z80run",
		Short: "Z80 machine runner, disassembler and self-check",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			logrus.SetOutput(os.Stderr)
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(runCommand(), disasmCommand(), verifyCommand())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type runOptions struct {
	org          uint16
	limit        int
	protect      bool
	maxSteps     uint64
	uart, tms    portValue
	tracePath    string
	panicUnknown bool
	shadowStack  bool
	stopOutside  bool
	resume       string
	save         string
}

func runCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [image]",
		Short: "Load a binary image and run it until HALT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return runImage(image, &opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.Var(newHexValue(0, &opts.org), "org", "Load address and entry point")
	f.IntVar(&opts.limit, "limit", bus.Size, "First unmapped address (reads FFh, writes dropped)")
	f.BoolVar(&opts.protect, "protect", true, "Stop on writes into the loaded image")
	f.Uint64Var(&opts.maxSteps, "max-steps", 0, "Stop after this many steps (0 = no limit)")
	f.Var(&opts.uart, "uart", "Attach an 8251 UART at this base port")
	f.Var(&opts.tms, "tms", "Attach a TMS5501 at this base port")
	f.StringVar(&opts.tracePath, "trace", "", "Write executed steps here (.json for a JSON step trace, otherwise the PC after each instruction, one per line)")
	f.BoolVar(&opts.panicUnknown, "panic-unknown", false, "Panic on an unknown opcode instead of stopping")
	f.BoolVar(&opts.shadowStack, "shadow-stack", false, "Check every RET against the matching CALL")
	f.BoolVar(&opts.stopOutside, "stop-outside", false, "Stop when PC leaves the loaded image")
	f.StringVar(&opts.resume, "resume", "", "Resume from a checkpoint file instead of the entry point")
	f.StringVar(&opts.save, "save", "", "Save a checkpoint here when the run stops")
	return cmd
}

func runImage(image []byte, opts *runOptions, out io.Writer) error {
	log := logrus.StandardLogger()

	m := bus.New(bus.Config{Limit: opts.limit, Protect: opts.protect}, log)
	if err := m.Load(opts.org, image); err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded %d bytes of memory\n", len(image))

	// The panel shares stdin with the console when one is open, so both
	// see the same bytes in order.
	var switches io.Reader = os.Stdin
	if opts.uart.set || opts.tms.set {
		con, err := console.Open()
		if err != nil {
			return err
		}
		defer con.Restore()
		switches = con
		if opts.uart.set {
			m.Ports.Attach(device.NewUART8251(opts.uart.port, con, con))
		}
		if opts.tms.set {
			m.Ports.Attach(device.NewTMS5501(opts.tms.port, con, con))
		}
	}
	m.Ports.Attach(device.NewPanel(switches, out, log))

	writers := monitor.NewWriters()
	cpuOpts := []cpu.Option{cpu.WithLogger(logrus.NewEntry(log)), cpu.WithTracer(writers)}
	if opts.panicUnknown {
		cpuOpts = append(cpuOpts, cpu.WithDecodePolicy(cpu.DecodePanic))
	}
	var shadow *monitor.ShadowStack
	if opts.shadowStack {
		shadow = monitor.NewShadowStack(log)
		cpuOpts = append(cpuOpts, cpu.WithObserver(shadow))
	}
	var rec *trace.Recorder
	if opts.tracePath != "" {
		rec = trace.NewRecorder()
		rec.Text = strings.HasSuffix(opts.tracePath, ".json")
		cpuOpts = append(cpuOpts, cpu.WithTracer(rec))
	}

	p := cpu.New(m, cpuOpts...)
	if opts.resume != "" {
		ckpt, err := trace.LoadCheckpoint(opts.resume)
		if err != nil {
			return err
		}
		copy(m.Mem.Bytes(), ckpt.Memory)
		p.Restore(ckpt.CPU)
	} else {
		r := p.Registers()
		r.PC = opts.org
		p.SetRegisters(r)
	}
	writers.Reset(p.Registers())

	// SIGINT stops the loop so the terminal and trace are cleaned up.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	runErr := loop(p, m, opts, len(image), interrupt)

	if rec != nil {
		if err := writeTrace(opts.tracePath, rec.Entries()); err != nil {
			return err
		}
	}
	if opts.save != "" {
		ckpt := &trace.Checkpoint{CPU: p.Snapshot(), Memory: m.Mem.Bytes()}
		if err := trace.SaveCheckpoint(opts.save, ckpt); err != nil {
			return err
		}
	}

	if p.Halted() {
		fmt.Fprintf(out, "Halted after %d cycles\n", p.Cycles())
	}
	monitor.DumpRegisters(out, p.Registers())
	if shadow != nil && shadow.Mismatches() > 0 {
		fmt.Fprintf(out, "%d inconsistent returns\n", shadow.Mismatches())
	}

	var re *bus.RangeError
	if errors.As(runErr, &re) {
		monitor.DumpWriters(out, p.Registers(), writers)
		monitor.DumpStack(out, p.Registers().SP, m.Read)
		monitor.DumpCode(out, p.PC(), m.Read)
	}
	return runErr
}

var errInterrupted = errors.New("interrupted")

func loop(p *cpu.Processor, m *bus.Machine, opts *runOptions, size int, interrupt <-chan os.Signal) error {
	end := int(opts.org) + size
	for steps := uint64(0); !p.Halted(); steps++ {
		if opts.maxSteps > 0 && steps >= opts.maxSteps {
			return nil
		}
		select {
		case <-interrupt:
			return errInterrupted
		default:
		}

		if err := p.Step(); err != nil {
			return err
		}
		if err := m.ProtectionFault(); err != nil {
			return fmt.Errorf("cycle %d: %w", p.Cycles(), err)
		}
		if pc := int(p.PC()); opts.stopOutside && (pc < int(opts.org) || pc > end) {
			return fmt.Errorf("PC has run off to 0x%04X", pc)
		}
	}
	return nil
}

func writeTrace(path string, entries []trace.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if strings.HasSuffix(path, ".json") {
		return trace.WriteJSON(f, entries)
	}
	return trace.WritePCList(f, entries)
}

func disasmCommand() *cobra.Command {
	var org uint16
	var count int

	cmd := &cobra.Command{
		Use:   "disasm [image]",
		Short: "List a binary image as Z80 assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return disasm.New(image, org).Listing(cmd.OutOrStdout(), count)
		},
	}
	cmd.Flags().Var(newHexValue(0, &org), "org", "Address of the first byte")
	cmd.Flags().IntVar(&count, "count", 0, "Number of instructions to list (0 = all)")
	return cmd
}

func verifyCommand() *cobra.Command {
	var cfg difftest.Config

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run random programs and check the core against itself",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Z80 core self-check\n")
			fmt.Fprintf(out, "  Programs: %d (max %d instructions, %d mutations each)\n", cfg.Programs, cfg.Length, cfg.Mutations)
			fmt.Fprintf(out, "  Seed: %d\n", cfg.Seed)

			report := difftest.Run(cfg, logrus.NewEntry(logrus.StandardLogger()))
			failures := report.Failures()
			fmt.Fprintf(out, "Checked %d programs, %d failures\n", report.Checked, len(failures))
			for _, f := range failures {
				fmt.Fprintf(out, "  [%d.%d] %s: %v\n", f.Program, f.Variant, f.Check, f.Err)
				if cfg.Verbose {
					disasm.New(f.Code, difftest.Origin).Listing(out, 0)
				}
			}
			if len(failures) > 0 {
				return fmt.Errorf("%d checks failed", len(failures))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.Programs, "programs", 1000, "Number of random programs")
	f.IntVar(&cfg.Length, "length", 16, "Maximum instructions per program")
	f.IntVar(&cfg.Steps, "steps", 0, "Step limit per run (0 = enough for the whole program)")
	f.IntVar(&cfg.Mutations, "mutations", 4, "Mutated variants per program")
	f.IntVar(&cfg.Workers, "workers", 0, "Number of workers (0 = NumCPU)")
	f.Uint64Var(&cfg.Seed, "seed", 1, "Random seed")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	return cmd
}

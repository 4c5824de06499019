// Command windbg attaches to a running Windows process and traps chosen
// addresses, printing the register file on every hit.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gni.dev/windbg"
	"gni.dev/windbg/internal/logflags"
)

var (
	argPid       uint32
	argHw        []string
	argSw        []string
	argConfig    string
	argLog       bool
	argLogOutput string
	argLogDest   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "windbg",
		Short: "User-mode breakpoint engine for Windows x86_64 processes",
	}

	attachCmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach to a process and handle breakpoints until interrupted",
		RunE:  attach,
	}
	attachCmd.Flags().Uint32Var(&argPid, "pid", 0, "target process id")
	attachCmd.Flags().StringArrayVar(&argHw, "hw", nil, "hardware breakpoint as slot:addr (e.g. 0:0x7ff6a1b2c3d4)")
	attachCmd.Flags().StringArrayVar(&argSw, "sw", nil, "software breakpoint address (e.g. 0x7ff6a1b2c3d4)")
	attachCmd.Flags().StringVar(&argConfig, "config", "", "YAML breakpoint file")
	attachCmd.MarkFlagRequired("pid")

	rootCmd.PersistentFlags().BoolVar(&argLog, "log", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&argLogOutput, "log-output", "", "comma separated list of components to log (debugger,threads,memory)")
	rootCmd.PersistentFlags().StringVar(&argLogDest, "log-dest", "", "write logs to file instead of stderr")

	rootCmd.AddCommand(attachCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func attach(cmd *cobra.Command, args []string) error {
	if err := logflags.Setup(argLog, argLogOutput, argLogDest); err != nil {
		return err
	}
	defer logflags.Close()

	specs, err := collectBreakpoints()
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("no breakpoints given; use --hw, --sw or --config")
	}

	sess, err := windbg.CreateDebugger(argPid)
	if err != nil {
		return err
	}

	for _, spec := range specs {
		bp := reportingBreakpoint(spec)
		if spec.Kind == kindHardware {
			err = sess.SetHardwareBreakpoint(spec.Slot, bp)
		} else {
			err = sess.AddSoftwareBreakpoint(bp)
		}
		if err != nil {
			return err
		}
	}

	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt)
	go func() {
		<-intr
		fmt.Fprintln(os.Stderr, "stopping")
		if err := sess.Stop(); err != nil {
			fmt.Fprintln(os.Stderr, "stop:", err)
		}
	}()

	fmt.Printf("attaching to pid %d with %d breakpoint(s)\n", argPid, len(specs))
	return sess.Start()
}

// reportingBreakpoint builds a breakpoint whose handler prints the register
// file and leaves it unchanged.
func reportingBreakpoint(spec breakpointSpec) windbg.Breakpoint {
	handler := func(regs windbg.Registers) windbg.Registers {
		fields := logrus.Fields{}
		for _, name := range windbg.GPRNames {
			fields[name] = fmt.Sprintf("%#016x", regs[name])
		}
		logrus.WithFields(fields).Infof("breakpoint hit at %#x", spec.Addr)
		return regs
	}
	if spec.Kind == kindHardware {
		return windbg.NewHardwareBreakpoint(spec.Addr, handler)
	}
	return windbg.NewSoftwareBreakpoint(spec.Addr, handler)
}

func collectBreakpoints() ([]breakpointSpec, error) {
	var specs []breakpointSpec
	if argConfig != "" {
		fromFile, err := loadBreakpointFile(argConfig)
		if err != nil {
			return nil, err
		}
		specs = append(specs, fromFile...)
	}
	for _, arg := range argHw {
		spec, err := parseHardwareSpec(arg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	for _, arg := range argSw {
		addr, err := parseAddr(arg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, breakpointSpec{Addr: addr, Kind: kindSoftware})
	}
	return specs, nil
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// exitError carries a process exit code. A nil err exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

// usageArgs turns positional argument errors into usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &exitError{code: 2, err: err}
		}
		return nil
	}
}

type cli struct {
	out    io.Writer
	errOut io.Writer

	keyDir  string
	verbose bool
	logger  *zap.Logger
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	c := &cli{out: out, errOut: errOut, logger: zap.NewNop()}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	_ = c.logger.Sync()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(errOut, "Error: %v\n", err)
	return 1
}

func (c *cli) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xdao-locator",
		Short: "Create, inspect and verify signed node locators",
		Args:  cobra.ArbitraryArgs,
		// Errors are printed by run with the matching exit code.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.logger = newLogger(c.errOut, c.verbose)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetOut(c.errOut)
			_ = cmd.Usage()
			if len(args) == 0 {
				return &exitError{code: 2}
			}
			return usageError("unknown command %q", args[0])
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: 2, err: err}
	})

	defaultDir := filepath.Join("~", ".xdao", "locator", "keys")
	cmd.PersistentFlags().StringVar(&c.keyDir, "key-dir", "", "Key store directory (default "+defaultDir+")")
	cmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(
		c.keyCmd(),
		c.createCmd(),
		c.inspectCmd(),
		c.verifyCmd(),
		c.shouldReplaceCmd(),
		c.selectCmd(),
	)
	return cmd
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), level)
	return zap.New(core)
}

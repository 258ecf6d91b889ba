// Package cmd implements the gradepush command line interface.
package cmd

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gradepush/gradepush/lib/consts"
)

// BannerColor is the color of the banner printed by the root command.
var BannerColor = color.New(color.FgCyan)

//nolint:gochecknoglobals
var (
	outMutex  = &sync.Mutex{}
	stdoutTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	stdout    = &consoleWriter{colorable.NewColorableStdout(), stdoutTTY, outMutex}
)

// rootCommand keeps all fields needed for the main gradepush command.
type rootCommand struct {
	ctx     context.Context
	logger  *logrus.Logger
	cmd     *cobra.Command
	logFmt  string
	verbose bool
	quiet   bool
	noColor bool
}

func newRootCommand(ctx context.Context, logger *logrus.Logger) *rootCommand {
	c := &rootCommand{ctx: ctx, logger: logger}
	c.cmd = &cobra.Command{
		Use:               "gradepush",
		Short:             "bulk grade entry for the SGN class diary",
		Long:              BannerColor.Sprintf("\n%s", consts.Banner()),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}
	c.cmd.PersistentFlags().AddFlagSet(c.rootCmdPersistentFlagSet())
	return c
}

func (c *rootCommand) rootCmdPersistentFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVarP(&c.quiet, "quiet", "q", false, "disable the run summary")
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&c.logFmt, "log-format", "", "log output format ('text' or 'json')")
	return flags
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, _ []string) error {
	if !cmd.Flags().Changed("log-format") {
		if envLogFmt, ok := os.LookupEnv("GRADEPUSH_LOG_FORMAT"); ok {
			c.logFmt = envLogFmt
		}
	}
	if err := c.setupLogger(); err != nil {
		return err
	}
	if c.noColor {
		stdout.Writer = colorable.NewNonColorable(os.Stdout)
	}
	stdlog.SetOutput(c.logger.Writer())
	c.logger.Debugf("gradepush version: v%s", consts.Version)
	return nil
}

func (c *rootCommand) setupLogger() error {
	if c.verbose {
		c.logger.SetLevel(logrus.DebugLevel)
	}
	switch c.logFmt {
	case "json":
		c.logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		c.logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   stdoutTTY && !c.noColor,
			DisableColors: c.noColor,
		})
	default:
		return ExitCode{Err: fmt.Errorf("unknown log format '%s'", c.logFmt), Code: 2}
	}
	return nil
}

// Execute adds all child commands to the root command and runs it. Called by
// main.main(), once.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := &logrus.Logger{
		Out:       os.Stderr,
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}

	c := newRootCommand(ctx, logger)
	c.cmd.AddCommand(
		c.getRunCmd(),
		c.getServeCmd(),
		getVersionCmd(),
	)

	if err := c.cmd.Execute(); err != nil {
		code := -1
		if e, ok := err.(ExitCode); ok {
			code = e.Code
		}
		logger.Error(err)
		os.Exit(code)
	}
}

// ExitCode is an error carrying the process exit code to use.
type ExitCode struct {
	Err  error
	Code int
}

func (e ExitCode) Error() string { return e.Err.Error() }

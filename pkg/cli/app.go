package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"launcher/pkg/common"
	"launcher/pkg/config"
	"launcher/pkg/disk"
	"launcher/pkg/display"
	"launcher/pkg/downloader"
)

// ExecutionResult is what every command returns.
type ExecutionResult = common.ExecutionResult

type Output = common.Output

// Action runs one command.
type Action func(ctx context.Context, app *App) (*ExecutionResult, error)

// App holds everything commands share. It is filled in by the root
// command once flags are parsed.
// Mutable
type App struct {
	Stdout io.Writer
	Stderr io.Writer

	Verbose     bool
	Concurrency int

	Cfg        config.ReadOnly
	Disp       display.Display
	Out        display.Display
	Downloader *downloader.Manager
	DiskMgr    disk.Manager
	Theme      *Theme

	exitCode int
}

// setup configures logging and loads the configuration.
func (a *App) setup() error {
	level := slog.LevelWarn
	if a.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(a.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Init()
	if err != nil {
		return fmt.Errorf("error initializing config: %w", err)
	}
	if a.Concurrency > 0 {
		s := cfg.GetSettings()
		s.Concurrency = a.Concurrency
		cfg.Checkout().SetSettings(s)
	}
	cfg.Freeze()

	a.Cfg = cfg
	a.Disp = display.NewWriterDisplay(a.Stderr)
	a.Disp.SetVerbose(a.Verbose)
	a.Out = display.NewWriterDisplay(a.Stdout)
	a.Downloader = downloader.New(downloader.OptionsFromSettings(cfg.GetSettings()))
	a.DiskMgr = disk.NewManager(cfg)
	a.Theme = DefaultTheme()
	return nil
}

// interactive reports whether stderr is a terminal a progress UI can draw on.
func (a *App) interactive() bool {
	f, ok := a.Stderr.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *App) run(ctx context.Context, action Action) error {
	res, err := action(ctx, a)
	if err != nil {
		return err
	}
	if res != nil {
		a.Out.RenderOutput(res.Output)
		a.exitCode = res.ExitCode
	}
	return nil
}

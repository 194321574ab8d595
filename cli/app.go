// Package cli implements the backintime command-line frontend: the
// kingpin application object, shared flags, and colored status output.
//
// Grounded on kopia's cli.App (github.com/kopia/kopia/cli/app.go) for the
// overall shape (a shared App struct owning global flags and standard
// streams, one command-registration method per verb) and on the same
// file's defaultColor/warningColor/errorColor convention for
// fatih/color-based status output.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/mscherer/backintime/config"
	"github.com/mscherer/backintime/internal/metrics"
	"github.com/mscherer/backintime/logging"
	"github.com/mscherer/backintime/pipeline"
	"github.com/mscherer/backintime/repository"
)

var log = logging.Module("backintime/cli")

var (
	defaultColor = color.New()
	changeColor  = color.New(color.FgHiCyan)
	errorColor   = color.New(color.FgHiRed)
	okColor      = color.New(color.FgHiGreen)
)

// App owns the kingpin application and the shared dependencies every
// command action closes over.
type App struct {
	configPath string
	repoRoot   string

	stdoutWriter io.Writer
	stderrWriter io.Writer

	registry *metrics.Registry
}

// NewApp returns an App with color output wired to os.Stdout/os.Stderr,
// auto-stripped when the destination is not a terminal (mattn/go-isatty),
// matching kopia's own colorable.NewColorable usage.
func NewApp() *App {
	return &App{
		stdoutWriter: colorableWriter(os.Stdout),
		stderrWriter: colorableWriter(os.Stderr),
		registry:     metrics.NewRegistry(),
	}
}

func colorableWriter(f *os.File) io.Writer {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return colorable.NewColorable(f)
	}

	return colorable.NewNonColorable(f)
}

func (a *App) stdout() io.Writer { return a.stdoutWriter }
func (a *App) stderr() io.Writer { return a.stderrWriter }

func (a *App) printStdout(msg string, args ...interface{}) {
	fmt.Fprintf(a.stdout(), msg, args...)
}

func (a *App) printStderr(msg string, args ...interface{}) {
	fmt.Fprintf(a.stderr(), msg, args...)
}

// Attach registers every backintime subcommand against kp and binds the
// shared --config/--repo flags.
func (a *App) Attach(kp *kingpin.Application) {
	kp.Flag("config", "path to the profile configuration file").
		Default(defaultConfigPath()).StringVar(&a.configPath)
	kp.Flag("repo", "path to the backup repository root").
		Required().StringVar(&a.repoRoot)

	a.setupSnapshotCommand(kp)
	a.setupListCommand(kp)
	a.setupRestoreCommand(kp)
	a.setupRemoveCommand(kp)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "backintime.conf"
	}

	return home + "/.config/backintime/config"
}

func (a *App) loadConfig() (*config.FileStore, error) {
	store := config.NewFileStore(a.configPath)
	if err := store.Load(); err != nil {
		return nil, err
	}

	return store, nil
}

func (a *App) repo() *repository.Repo {
	return repository.New(a.repoRoot)
}

func (a *App) newPipeline(store config.Store) *pipeline.Pipeline {
	return pipeline.New(a.repo(), store, pipeline.NewInstruments(a.registry))
}

func noRepositoryContext() context.Context {
	return context.Background()
}

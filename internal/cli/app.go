package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamaar/constprop/internal/config"
	"github.com/mamaar/constprop/internal/logging"
	"github.com/mamaar/constprop/pkg/refactor"
)

// ErrSilent marks a failure that has already been reported to the user
var ErrSilent = errors.New("silent")

// App represents the constprop application
type App struct {
	Root  *cobra.Command
	Flags *Flags

	In  io.Reader
	Out io.Writer
	Err io.Writer

	Config *config.Config
	Logger *zap.Logger

	engine *refactor.DefaultEngine
}

// NewApp creates the root command. Subcommands are added with AddCommand.
func NewApp(in io.Reader, out, errOut io.Writer) *App {
	app := &App{
		Flags:  &Flags{},
		In:     in,
		Out:    out,
		Err:    errOut,
		Logger: zap.NewNop(),
	}
	root := &cobra.Command{
		Use:               "constprop",
		Short:             shortUsage,
		Long:              longUsage,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return app.setup() },
		PersistentPostRun: func(cmd *cobra.Command, args []string) { _ = app.Logger.Sync() },
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	app.Flags.bind(root.PersistentFlags())
	app.Root = root
	return app
}

// AddCommand registers subcommands
func (app *App) AddCommand(cmds ...*cobra.Command) {
	app.Root.AddCommand(cmds...)
}

// Execute runs the command line and returns the process exit code
func (app *App) Execute(args []string) int {
	app.Root.SetArgs(args)
	if err := app.Root.Execute(); err != nil {
		if !errors.Is(err, ErrSilent) {
			fmt.Fprintf(app.Err, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// setup loads the configuration and builds the logger
func (app *App) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if app.Flags.Config != "" {
		cfg, err = config.NewFileLoader(app.Flags.Config).Load()
	} else {
		cfg, err = config.LoadConfigFromDir(app.Flags.Workspace)
	}
	if err != nil {
		return err
	}
	if app.Flags.Verbose {
		cfg.Log.Level = "debug"
	}
	if app.Flags.NoBackup {
		cfg.Backup = false
	}
	logger, err := logging.New(cfg.Log, app.Err)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Config = cfg
	app.Logger = logger
	return nil
}

// Engine returns the refactoring engine with the workspace loaded
func (app *App) Engine() (*refactor.DefaultEngine, error) {
	if app.engine != nil {
		return app.engine, nil
	}
	if app.Config == nil {
		app.Config = config.Default()
	}
	ec, err := app.Config.EngineConfig()
	if err != nil {
		return nil, err
	}
	ec.AllowBreaking = app.Flags.AllowBreaking
	engine := refactor.CreateEngineWithConfig(ec, app.Logger)
	if _, err := engine.LoadWorkspace(app.Flags.Workspace); err != nil {
		return nil, err
	}
	app.engine = engine
	return engine, nil
}

// Interactive reports whether the input is a terminal
func (app *App) Interactive() bool {
	f, ok := app.In.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

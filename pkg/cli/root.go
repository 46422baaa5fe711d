package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"launcher/pkg/config"
)

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := &App{Stdout: stdout, Stderr: stderr}
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return app.exitCode
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "launcher",
		Short:         "Asset and runtime manager for the game launcher.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
	}
	root.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().IntVarP(&app.Concurrency, "concurrency", "c", 0, "max number of concurrent downloads (default from settings)")

	root.AddCommand(
		diffCmd(app),
		fetchCmd(app),
		getCmd(app),
		digestCmd(app),
		verifyCmd(app),
		extractCmd(app),
		assetsCmd(app),
		runtimeCmd(app),
		diskCmd(app),
		versionCmd(app),
	)
	return root
}

func action(app *App, a func(ctx context.Context, app *App, args []string) (*ExecutionResult, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return app.run(cmd.Context(), func(ctx context.Context, app *App) (*ExecutionResult, error) {
			return a(ctx, app, args)
		})
	}
}

func diffCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "diff ROOT PATH...",
		Short:   "List the expected paths missing under ROOT.",
		Example: "launcher diff ~/.local/share/launcher/assets/objects aa/aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d",
		Args:    cobra.MinimumNArgs(1),
		RunE:    action(app, runDiff),
	}
}

func fetchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch BATCH.json",
		Short: "Download a batch of files described by a {url: destination} JSON object.",
		Args:  cobra.ExactArgs(1),
		RunE:  action(app, runFetch),
	}
}

func getCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get URL DEST",
		Short: "Download one file with live progress.",
		Args:  cobra.ExactArgs(2),
		RunE:  action(app, runGet),
	}
}

func digestCmd(app *App) *cobra.Command {
	var sha1 bool
	cmd := &cobra.Command{
		Use:   "digest FILE",
		Short: "Print the SHA-256 of FILE.",
		Args:  cobra.ExactArgs(1),
		RunE: action(app, func(ctx context.Context, app *App, args []string) (*ExecutionResult, error) {
			return runDigest(ctx, app, args, sha1)
		}),
	}
	cmd.Flags().BoolVar(&sha1, "sha1", false, "print the SHA-1 instead")
	return cmd
}

func verifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE SHA1",
		Short: "Check FILE against its expected SHA-1.",
		Args:  cobra.ExactArgs(2),
		RunE:  action(app, runVerify),
	}
}

func extractCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "extract ARCHIVE DEST",
		Short: "Unpack a .tar.gz, .tgz, .zip, .jar or .tar archive into DEST.",
		Args:  cobra.ExactArgs(2),
		RunE:  action(app, runExtract),
	}
}

func assetsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage the asset object store.",
	}

	var baseURL string
	sync := &cobra.Command{
		Use:   "sync INDEX_URL [ROOT]",
		Short: "Download and verify the objects of an asset index.",
		Long:  "Download and verify the objects of an asset index. ROOT defaults to the launcher's assets directory.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: action(app, func(ctx context.Context, app *App, args []string) (*ExecutionResult, error) {
			return runAssetsSync(ctx, app, args, baseURL)
		}),
	}
	sync.Flags().StringVar(&baseURL, "base-url", "", "asset server (default from settings)")

	cmd.AddCommand(sync)
	return cmd
}

func runtimeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runtime",
		Short: "Manage Java runtimes.",
	}

	var opts runtimeInstallOptions
	install := &cobra.Command{
		Use:     "install URL NAME",
		Short:   "Download, verify and unpack a runtime archive into the runtime directory.",
		Example: "launcher runtime install https://example.com/OpenJDK17U-jre_x64_linux.tar.gz java-17 --exec bin/java",
		Args:    cobra.ExactArgs(2),
		RunE: action(app, func(ctx context.Context, app *App, args []string) (*ExecutionResult, error) {
			return runRuntimeInstall(ctx, app, args, opts)
		}),
	}
	install.Flags().StringVar(&opts.SHA256, "sha256", "", "expected SHA-256 of the archive")
	install.Flags().BoolVar(&opts.KeepArchive, "keep-archive", false, "keep the downloaded archive in the cache")
	install.Flags().StringSliceVar(&opts.Executables, "exec", nil, "paths inside the runtime to mark executable")

	cmd.AddCommand(install)
	return cmd
}

func diskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disk",
		Short: "Inspect and clean the launcher's storage.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Show disk usage per category.",
			Args:  cobra.NoArgs,
			RunE: action(app, func(ctx context.Context, app *App, args []string) (*ExecutionResult, error) {
				return app.DiskMgr.Info()
			}),
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Empty the download cache and remove interrupted installs.",
			Args:  cobra.NoArgs,
			RunE: action(app, func(ctx context.Context, app *App, args []string) (*ExecutionResult, error) {
				return app.DiskMgr.CleanDir()
			}),
		},
	)
	return cmd
}

func versionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Args:  cobra.NoArgs,
		RunE: action(app, func(ctx context.Context, app *App, args []string) (*ExecutionResult, error) {
			return &ExecutionResult{Output: &Output{Message: config.GetBuildInfo()}}, nil
		}),
	}
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"launcher/pkg/archive"
	"launcher/pkg/assets"
	"launcher/pkg/common"
	"launcher/pkg/display"
	"launcher/pkg/downloader"
	"launcher/pkg/installer"
	"launcher/pkg/integrity"
	"launcher/pkg/manifest"
)

func runDiff(ctx context.Context, app *App, args []string) (*ExecutionResult, error) {
	missing := manifest.Diff(args[0], args[1:])
	return &ExecutionResult{
		Output: &Output{Message: strings.Join(missing, "\n")},
	}, nil
}

func runFetch(ctx context.Context, app *App, args []string) (*ExecutionResult, error) {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, common.FromIO("read", args[0], err)
	}
	var batch downloader.Batch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, common.NewError(common.InvalidEntry, "read", args[0], err)
	}

	task := app.Disp.StartTask("fetch")
	defer task.Done()
	task.SetStage("Download", fmt.Sprintf("%d files", len(batch)))

	pool := downloader.NewPool(app.Downloader, app.Cfg.GetSettings().Concurrency)
	res, err := pool.Run(ctx, batch, display.BatchObserver(task, len(batch)))
	if err != nil {
		return nil, err
	}
	return batchOutput(app, res), nil
}

func batchOutput(app *App, res *downloader.BatchResult) *ExecutionResult {
	out := &ExecutionResult{
		Output: &Output{
			Message: fmt.Sprintf("%s %d/%d downloaded (%s)", app.Theme.IconOK, res.Succeeded, res.Total, humanize.Bytes(uint64(res.Bytes))),
		},
	}
	if res.OK() {
		return out
	}
	out.ExitCode = 1
	out.Output.Message = fmt.Sprintf("%s %d/%d downloaded, %d failed", app.Theme.IconFail, res.Succeeded, res.Total, res.Failed())
	table := &common.Table{Header: []string{"URL", "Error"}}
	for _, f := range res.Failures {
		table.AddRow(f.URL, f.Err.Error())
	}
	out.Output.Table = table
	return out
}

func runGet(ctx context.Context, app *App, args []string) (*ExecutionResult, error) {
	url, dest := args[0], args[1]

	var (
		n   int64
		err error
	)
	if app.interactive() {
		n, err = streamWithProgressBar(ctx, app, url, dest)
	} else {
		task := app.Disp.StartTask("get")
		task.SetStage("Download", dest)
		n, err = app.Downloader.Stream(ctx, url, dest, display.StreamObserver(task))
		task.Done()
	}
	if err != nil {
		return nil, err
	}
	return &ExecutionResult{
		Output: &Output{Message: fmt.Sprintf("%s %s %s (%s)", app.Theme.IconOK, app.Theme.Arrow, dest, humanize.Bytes(uint64(n)))},
	}, nil
}

func runDigest(ctx context.Context, app *App, args []string, sha1 bool) (*ExecutionResult, error) {
	var (
		sum string
		err error
	)
	if sha1 {
		sum, err = integrity.ComputeWith(args[0], integrity.SHA1)
	} else {
		sum, err = integrity.Compute(args[0])
	}
	if err != nil {
		return nil, err
	}
	return &ExecutionResult{Output: &Output{Message: sum}}, nil
}

func runVerify(ctx context.Context, app *App, args []string) (*ExecutionResult, error) {
	err := integrity.Verify(args[0], args[1])
	if common.KindOf(err) == common.IntegrityMismatch {
		return &ExecutionResult{
			ExitCode: 1,
			Output:   &Output{Message: fmt.Sprintf("%s %v", app.Theme.IconFail, err)},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ExecutionResult{Output: &Output{Message: app.Theme.IconOK + " " + args[0]}}, nil
}

func runExtract(ctx context.Context, app *App, args []string) (*ExecutionResult, error) {
	status, err := archive.Extract(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return &ExecutionResult{Output: &Output{Message: status}}, nil
}

func runAssetsSync(ctx context.Context, app *App, args []string, baseURL string) (*ExecutionResult, error) {
	indexURL := args[0]
	root := app.Cfg.GetAssetsDir()
	if len(args) > 1 {
		root = args[1]
	}
	if baseURL == "" {
		baseURL = app.Cfg.GetSettings().AssetBaseURL
	}

	cachePath := filepath.Join(root, "indexes", indexName(indexURL))
	ix, err := assets.LoadIndex(ctx, app.Downloader, indexURL, cachePath)
	if err != nil {
		return nil, err
	}

	task := app.Disp.StartTask("assets")
	defer task.Done()
	task.SetStage("Sync", ix.String())

	missing := len(manifest.Diff(filepath.Join(root, "objects"), ix.Paths()))
	res, err := assets.Sync(ctx, app.Downloader, ix, assets.SyncOptions{
		Root:        root,
		BaseURL:     baseURL,
		Concurrency: app.Cfg.GetSettings().Concurrency,
	}, display.BatchObserver(task, missing))
	if err != nil {
		return nil, err
	}

	out := &ExecutionResult{Output: &Output{
		KV: []common.KV{
			{Key: "Objects", Value: fmt.Sprintf("%d", res.Expected)},
			{Key: "Missing", Value: fmt.Sprintf("%d", res.Missing)},
		},
	}}
	if res.Download != nil {
		out.Output.KV = append(out.Output.KV, common.KV{Key: "Downloaded", Value: humanize.Bytes(uint64(res.Download.Bytes))})
	}
	if err := res.Err(); err != nil {
		out.ExitCode = 1
		out.Output.Message = fmt.Sprintf("%s %v", app.Theme.IconFail, err)
	} else {
		out.Output.Message = app.Theme.IconOK + " assets up to date"
	}
	return out, nil
}

// indexName picks the cache file name for an index URL, e.g. "17.json".
func indexName(indexURL string) string {
	name := path.Base(strings.SplitN(indexURL, "?", 2)[0])
	if name == "" || name == "." || name == "/" {
		return "index.json"
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return name
}

type runtimeInstallOptions struct {
	SHA256      string
	KeepArchive bool
	Executables []string
}

func runRuntimeInstall(ctx context.Context, app *App, args []string, opts runtimeInstallOptions) (*ExecutionResult, error) {
	plan, err := installer.NewPlan(app.Cfg, args[1], args[0], opts.SHA256)
	if err != nil {
		return nil, err
	}
	plan.KeepArchive = opts.KeepArchive
	plan.Executables = opts.Executables

	task := app.Disp.StartTask(plan.Name)
	task.SetStage("Install", plan.InstallPath)
	installed, err := installer.Install(ctx, app.Downloader, plan, display.StreamObserver(task))
	task.Done()
	if err != nil {
		return nil, err
	}
	return &ExecutionResult{
		Output: &Output{Message: fmt.Sprintf("%s %s %s %s", app.Theme.IconOK, plan.Name, app.Theme.Arrow, installed)},
	}, nil
}

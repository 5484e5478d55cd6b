package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/alecthomas/hcl/v2"
	"github.com/alecthomas/kong"

	"github.com/rhodecode/vcsserver/internal/config"
	"github.com/rhodecode/vcsserver/internal/hooks"
	"github.com/rhodecode/vcsserver/internal/logging"
	"github.com/rhodecode/vcsserver/internal/metrics"
	"github.com/rhodecode/vcsserver/internal/rpcserver"
	"github.com/rhodecode/vcsserver/internal/scmapp"
	"github.com/rhodecode/vcsserver/internal/vcs/git"
	"github.com/rhodecode/vcsserver/internal/vcs/hg"
	"github.com/rhodecode/vcsserver/internal/vcs/svn"
	"github.com/rhodecode/vcsserver/internal/vcsserver"
	"github.com/rhodecode/vcsserver/internal/wire"
)

type CLI struct {
	Schema bool `help:"Print the configuration file schema." xor:"command"`

	Config *os.File `hcl:"-" help:"Configuration file path." required:"" default:"vcsserver.hcl"`
}

// runHook implements `vcsserverd hook pre-receive`/`post-receive`, the
// binary internal/vcs/git installs as .git/hooks/pre-receive and
// .git/hooks/post-receive (see internal/vcs/git.installHooks). Git
// invokes these itself while serving git-receive-pack, feeding the
// pushed "old new ref" lines on stdin and inheriting RC_SCM_DATA from
// the environment internal/pygrack/backend.go set on that process. It
// is handled ahead of kong/hcl config parsing since a hook invocation
// carries no --config flag of its own — just the inherited environment.
func runHook(name string) int {
	ctx := context.Background()

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vcsserverd hook: read stdin: %v\n", err)
		return 1
	}
	lines := hooks.ParseRevisionLines(string(raw))

	var extras wire.Extras
	if data := os.Getenv("RC_SCM_DATA"); data != "" {
		if err := json.Unmarshal([]byte(data), &extras); err != nil {
			fmt.Fprintf(os.Stderr, "vcsserverd hook: decode RC_SCM_DATA: %v\n", err)
			return 1
		}
	}
	transport := hooks.Resolve(extras, nil)

	repoDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vcsserverd hook: %v\n", err)
		return 1
	}

	var status int
	switch name {
	case "pre-receive":
		status, err = hooks.GitPreReceive(ctx, transport, extras)
	case "post-receive":
		status, err = hooks.GitPostReceive(ctx, transport, repoDir, lines, extras)
	default:
		fmt.Fprintf(os.Stderr, "vcsserverd hook: unknown hook %q\n", name)
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "vcsserverd hook: %v\n", err)
	}
	return status
}

func main() {
	if len(os.Args) > 2 && os.Args[1] == "hook" {
		os.Exit(runHook(os.Args[2]))
	}

	var cli CLI
	kctx := kong.Parse(&cli, kong.DefaultEnvars("VCSSERVER"))

	if cli.Schema {
		printSchema(kctx)
		return
	}

	defer cli.Config.Close()
	ast, err := hcl.Parse(cli.Config)
	kctx.FatalIfErrorf(err)

	var globalConfig config.GlobalConfig
	schema, err := hcl.Schema(&globalConfig)
	kctx.FatalIfErrorf(err)

	envars := config.ParseEnvars()
	config.InjectEnvars(schema, ast, "VCSSERVER", envars)
	config.ExpandVars(ast, envars)

	err = hcl.UnmarshalAST(ast, &globalConfig, hcl.HydratedImplicitBlocks(true))
	kctx.FatalIfErrorf(err)

	ctx := context.Background()
	logger, ctx := logging.Configure(ctx, globalConfig.LoggingConfig)

	metricsClient, err := metrics.New(ctx, globalConfig.MetricsConfig)
	kctx.FatalIfErrorf(err, "failed to create metrics client")
	defer func() {
		if err := metricsClient.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close metrics client", "error", err)
		}
	}()

	if err := metricsClient.ServeMetrics(ctx); err != nil {
		kctx.FatalIfErrorf(err, "failed to start metrics server")
	}

	app := newApplication(globalConfig, metricsClient)
	mux := app.NewMux()

	logger.InfoContext(ctx, "Starting vcsserverd", slog.String("bind", globalConfig.Bind))

	server := newServer(ctx, mux, globalConfig.Bind)
	err = server.ListenAndServe()
	kctx.FatalIfErrorf(err)
}

func newApplication(cfg config.GlobalConfig, metricsClient *metrics.Client) *rpcserver.Application {
	gitFactory := git.NewFactory(cfg.GitPath)
	hgFactory := hg.NewFactory(cfg.HgPath)
	svnFactory := svn.NewFactory(cfg.SvnTools)
	server := &vcsserver.Server{}

	return &rpcserver.Application{
		Backends: map[string]rpcserver.Backend{
			"git":    &rpcserver.GitBackend{Factory: gitFactory},
			"hg":     &rpcserver.HgBackend{Factory: hgFactory},
			"svn":    &rpcserver.SvnBackend{Factory: svnFactory},
			"server": &rpcserver.ServerBackend{Server: server},
		},
		GitApp: func(repoPath, _ string, _ wire.Args, extras wire.Extras, transport hooks.Transport) (http.Handler, error) {
			return scmapp.NewGitApp(repoPath, cfg.GitPath, true, extras, transport)
		},
		HgApp: func(repoPath, _ string, _ wire.Args, _ wire.Extras, _ hooks.Transport) (http.Handler, error) {
			return scmapp.NewHgApp(scmapp.HgConfig{RepoPath: repoPath, HgPath: cfg.HgPath})
		},
		UseEchoApp: cfg.Dev.UseEchoApp,
		Metrics:    metricsClient,
	}
}

func printSchema(kctx *kong.Context) {
	schema := config.Schema()
	text, err := hcl.MarshalAST(schema)
	kctx.FatalIfErrorf(err)

	if fileInfo, err := os.Stdout.Stat(); err == nil && (fileInfo.Mode()&os.ModeCharDevice) != 0 {
		err = quick.Highlight(os.Stdout, string(text), "terraform", "terminal256", "solarized")
		kctx.FatalIfErrorf(err)
	} else {
		fmt.Printf("%s\n", text) //nolint:forbidigo
	}
}

func newServer(ctx context.Context, mux *http.ServeMux, bind string) *http.Server {
	logger := logging.FromContext(ctx)

	return &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadTimeout:       30 * time.Minute,
		WriteTimeout:      30 * time.Minute,
		ReadHeaderTimeout: 30 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
		ConnContext: func(ctx context.Context, c net.Conn) context.Context {
			return logging.ContextWithLogger(ctx, logger.With("client", c.RemoteAddr().String()))
		},
	}
}

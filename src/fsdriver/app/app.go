package app

import (
	"context"
	"time"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/fsdriver/src/fsdriver/controller/fsclient"
	"github.com/uber/fsdriver/src/fsdriver/gateway/artifact"
	"github.com/uber/fsdriver/src/fsdriver/gateway/packagesfile"
	"github.com/uber/fsdriver/src/fsdriver/internal/core"
	"github.com/uber/fsdriver/src/fsdriver/internal/diagnostics"
	"github.com/uber/fsdriver/src/fsdriver/internal/executor"
	"github.com/uber/fsdriver/src/fsdriver/internal/fs"
	"github.com/uber/fsdriver/src/fsdriver/repository/fingerprint"
	"go.uber.org/fx"
)

// Module defines the fsdriver application module.
var Module = fx.Options(
	fs.Module,
	executor.Module,
	diagnostics.Module,
	artifact.Module,
	packagesfile.Module,
	fingerprint.Module,
	fsclient.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "fsdriver",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	fx.Decorate(decorateEnvContext),
	fx.Decorate(decorateConfigProvider),
	fx.Provide(func() Context {
		return Context{
			Environment:        "local",
			RuntimeEnvironment: "local",
		}
	}),
)

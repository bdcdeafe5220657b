package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/study-extract/internal/agent"
	"github.com/sells-group/study-extract/internal/browser"
	"github.com/sells-group/study-extract/internal/model"
	"github.com/sells-group/study-extract/internal/pipeline"
	"github.com/sells-group/study-extract/internal/registry"
	"github.com/sells-group/study-extract/internal/store"
	anthropicpkg "github.com/sells-group/study-extract/pkg/anthropic"
)

// initStore opens and migrates the run ledger.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "study-extract.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initSchema() (*model.Schema, error) {
	schema, err := registry.LoadSchemaFromFile(cfg.Schema.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load schema")
	}
	return schema, nil
}

// initAgent builds the configured turn backend. The returned func releases
// it and is always safe to call.
func initAgent(ctx context.Context) (pipeline.Interactor, func(), error) {
	switch cfg.Agent.Backend {
	case "anthropic":
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		return agent.NewAPIClient(client, cfg.Anthropic, cfg.Agent.MinTurnInterval), func() {}, nil
	case "browser":
		session, err := browser.Launch(ctx, browser.OptionsFromConfig(cfg.Browser, cfg.Agent))
		if err != nil {
			return nil, func() {}, err
		}
		client := agent.NewClient(session, agent.OptionsFromConfig(cfg.Agent, cfg.Browser))
		release := func() {
			if err := client.Close(); err != nil {
				zap.L().Debug("close agent home page", zap.Error(err))
			}
			_ = session.Close()
		}
		if err := client.Prepare(ctx); err != nil {
			release()
			return nil, func() {}, eris.Wrap(err, "prepare agent session")
		}
		return client, release, nil
	default:
		return nil, func() {}, eris.Errorf("unsupported agent backend: %s", cfg.Agent.Backend)
	}
}

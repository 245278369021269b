package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/store"
	sfpkg "github.com/sells-group/suplook/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "json", "":
		return store.NewJSON(cfg.Store.DataDir), nil
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
				return nil, eris.Wrap(err, "create data dir")
			}
			dsn = sqlitePath()
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initSalesforce returns a nil client when Salesforce is not configured.
func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		zap.L().Info("salesforce client id not set, push disabled")
		return nil, nil
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RequestsPerSecond)), nil
}

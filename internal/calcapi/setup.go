package calcapi

import (
	"github.com/QuantumFusion-network/pvm-dapp-demo/eventlog"
	"github.com/QuantumFusion-network/pvm-dapp-demo/leveldb"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/mongodb"
	"github.com/QuantumFusion-network/pvm-dapp-demo/params"
	"github.com/QuantumFusion-network/pvm-dapp-demo/pipeline"
	"github.com/QuantumFusion-network/pvm-dapp-demo/tools"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet/keystore"
)

// NewFromConfig builds an App with the providers, stores and publishers
// named in cfg. The App is not connected yet.
func NewFromConfig(cfg *params.CalcConfig) (app *App, err error) {
	opts := Options{Config: cfg, Registry: wallet.NewRegistry()}
	defer func() {
		if err != nil {
			closeAll(opts)
		}
	}()

	if ks := cfg.Wallet.Keystore; ks != nil {
		store, err := keystore.Open(keystore.Config{
			Name:           ks.Name,
			Dir:            ks.Dir,
			PassphraseFile: ks.PassphraseFile,
			SS58Prefix:     cfg.Contract.GetSS58Prefix(),
			Origins:        ks.Origins,
		})
		if err != nil {
			return nil, err
		}
		opts.Closers = append(opts.Closers, store)
		if ks.Watch {
			if err := store.Watch(); err != nil {
				return nil, err
			}
		}
		opts.Registry.Register(store)
		log.Info("keystore provider installed", "name", store.Name(), "dir", ks.Dir)
	}

	if opts.History, err = openHistory(cfg); err != nil {
		return nil, err
	}

	if nc := cfg.Nats; nc != nil {
		publisher, err := eventlog.NewNatsPublisher(nc.URL, nc.Subject)
		if err != nil {
			return nil, err
		}
		opts.Publishers = append(opts.Publishers, publisher)
		opts.Closers = append(opts.Closers, publisher)
		log.Info("event log publication enabled", "url", nc.URL, "subject", nc.Subject)
	}

	if ec := cfg.Email; ec != nil {
		opts.Notifier = tools.NewEmailNotifier(ec.Server, ec.Port, ec.From, ec.FromName, ec.Password, ec.To, ec.Cc)
		log.Info("failure email notification enabled", "to", ec.To)
	}

	return New(opts), nil
}

// openHistory prefers mongodb when configured, else leveldb when a data
// dir or leveldb path is set
func openHistory(cfg *params.CalcConfig) (pipeline.HistoryStore, error) {
	if mc := cfg.MongoDB; mc != nil {
		store, err := mongodb.MongoServerInit(mc.GetMongoDBURLs(), mc.DBName, mc.UserName, mc.Password)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	if cfg.LevelDB == nil && params.GetDataDir() == "" {
		log.Info("submission history disabled, no data dir")
		return nil, nil
	}
	store, err := leveldb.OpenHistory(cfg.GetLevelDBPath(), cfg.Identifier)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func closeAll(opts Options) {
	if opts.History != nil {
		_ = opts.History.Close()
	}
	for _, c := range opts.Closers {
		_ = c.Close()
	}
}

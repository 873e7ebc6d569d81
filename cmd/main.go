package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/asset"
	"github.com/Lumerin-protocol/actus-originator/internal/config"
	"github.com/Lumerin-protocol/actus-originator/internal/engine"
	"github.com/Lumerin-protocol/actus-originator/internal/handlers/httphandlers"
	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/order"
	"github.com/Lumerin-protocol/actus-originator/internal/originator"
	"github.com/Lumerin-protocol/actus-originator/internal/repositories/contracts"
	"github.com/Lumerin-protocol/actus-originator/internal/repositories/ledgermock"
	"github.com/Lumerin-protocol/actus-originator/internal/servicer"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/Lumerin-protocol/actus-originator/internal/template"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Ledger is everything the app needs from the ledger, implemented by the contracts adapter
// and the in-memory ledger
type Ledger interface {
	originator.Chain
	template.Ledger
	asset.Ledger
	servicer.Ledger
	servicer.IssuanceFeed
	engine.Engine
}

type ethLedger struct {
	*contracts.ActusEthereum
	*contracts.PAMEngineEthereum
}

const dryRunFunds = "1000000000000000000000000"

func main() {
	err := start()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func start() error {
	var cfg config.Config
	err := config.LoadConfig(&cfg, &os.Args)
	if err != nil {
		return err
	}

	logFile := ""
	if cfg.Log.FolderPath != "" {
		logFile = filepath.Join(cfg.Log.FolderPath, "originator.log")
	}

	log, err := lib.NewLogger(cfg.Log.LevelApp, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, logFile)
	if err != nil {
		return err
	}
	ledgerLog, err := lib.NewLogger(cfg.Log.LevelLedger, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, logFile)
	if err != nil {
		return err
	}
	servicerLog, err := lib.NewLogger(cfg.Log.LevelServicer, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, logFile)
	if err != nil {
		return err
	}

	defer func() {
		_ = log.Sync()
	}()

	log.Infof("originator %s, config: %+v", config.BuildVersion, cfg.GetSanitized())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-shutdownChan
		log.Warnf("Received signal: %s", s)
		cancel()

		s = <-shutdownChan
		log.Warnf("Received signal: %s. Forcing exit...", s)
		os.Exit(1)
	}()

	creator, counterparty, err := loadIdentities(&cfg)
	if err != nil {
		return err
	}
	log.Infof("creator %s, counterparty %s", creator, counterparty)

	ledger, err := newLedger(ctx, &cfg, creator, counterparty, ledgerLog.Named("LEDGER"))
	if err != nil {
		return err
	}

	originatorCfg, err := newOriginatorConfig(&cfg)
	if err != nil {
		return err
	}

	registry := template.NewRegistry(ledger, ledger, log.Named("TEMPLATE"))
	issuer := asset.NewIssuer(ledger, log.Named("ISSUER"))
	svc := servicer.NewServicer(ledger, servicerLog.Named("SERVICER"))
	orig := originator.NewOriginator(originatorCfg, creator, counterparty, ledger, registry, issuer, svc, log.Named("ORIGINATOR"))

	runCtx, runCancel := context.WithTimeout(ctx, cfg.App.Timeout)
	res, err := orig.Run(runCtx)
	runCancel()
	if err != nil {
		return err
	}
	log.Infof("asset %s originated from template %s", res.AssetID.Hex(), res.TemplateID.Hex())

	if !cfg.Servicer.Enable && !cfg.Web.Enable {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Servicer.Enable {
		scheduler := servicer.NewScheduler(svc, cfg.Servicer.Interval, []signer.Identity{creator, counterparty}, servicerLog.Named("SCHEDULER"))
		scheduler.Add(res.AssetID)

		g.Go(func() error {
			err := scheduler.Follow(ctx, ledger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})

		task := lib.NewTask("scheduler", scheduler, log)
		g.Go(func() error {
			task.Start(ctx)
			select {
			case <-ctx.Done():
				<-task.Stop()
				return nil
			case <-task.Done():
				return task.Err()
			}
		})
	}

	if cfg.Web.Enable {
		domain, err := ledger.Domain(ctx)
		if err != nil {
			return err
		}
		handl := httphandlers.NewHTTPHandler(order.NewVerifier(signer.NewEIP712(), domain), registry, ledger, svc, &cfg, log.Named("HTTP"))
		server := &http.Server{Addr: cfg.Web.Address, Handler: handl, ReadHeaderTimeout: 10 * time.Second}

		g.Go(func() error {
			log.Infof("http server is listening: %s", cfg.Web.Address)
			err := server.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	log.Infof("App exited due to %v", err)
	return err
}

func loadIdentities(cfg *config.Config) (creator signer.Identity, counterparty signer.Identity, err error) {
	if cfg.Identities.Mnemonic != "" {
		creator, err = signer.IdentityFromMnemonic(cfg.Identities.Mnemonic, cfg.Identities.CreatorIndex)
		if err != nil {
			return
		}
		counterparty, err = signer.IdentityFromMnemonic(cfg.Identities.Mnemonic, cfg.Identities.CounterpartyIndex)
		return
	}

	creator, err = signer.IdentityFromPrivateKey(cfg.Identities.CreatorPrivateKey)
	if err != nil {
		return
	}
	counterparty, err = signer.IdentityFromPrivateKey(cfg.Identities.CounterpartyPrivateKey)
	return
}

func newLedger(ctx context.Context, cfg *config.Config, creator, counterparty signer.Identity, log interfaces.ILogger) (Ledger, error) {
	if cfg.App.DryRun {
		ledger := ledgermock.NewLedger(log)
		funds, _ := new(big.Int).SetString(dryRunFunds, 10)
		ledger.Mint(ledgermock.SettlementToken, creator.Address, funds)
		ledger.Mint(ledgermock.SettlementToken, counterparty.Address, funds)
		log.Warnf("dry run, using in-memory ledger with settlement token %s", ledgermock.SettlementToken.Hex())
		return ledger, nil
	}

	client, err := contracts.DialContext(ctx, cfg.Blockchain.EthNodeAddress)
	if err != nil {
		return nil, err
	}
	log.Infof("connected to ethereum node: %s", client.URL())

	transactor := contracts.NewTransactor(client, log)
	transactor.SetLegacyTx(cfg.Blockchain.EthLegacyTx)

	logWatcher := contracts.NewLogWatcherPolling(client, cfg.Blockchain.PollingInterval, cfg.Blockchain.MaxReconnects, log)

	addrs := contracts.ActusAddresses{
		TemplateRegistry: common.HexToAddress(cfg.Contracts.TemplateRegistry),
		AssetIssuer:      common.HexToAddress(cfg.Contracts.AssetIssuer),
		AssetRegistry:    common.HexToAddress(cfg.Contracts.AssetRegistry),
		PAMEngine:        common.HexToAddress(cfg.Contracts.PAMEngine),
	}
	return &ethLedger{
		ActusEthereum:     contracts.NewActusEthereum(addrs, client, transactor, logWatcher, log),
		PAMEngineEthereum: contracts.NewPAMEngineEthereum(addrs.PAMEngine, client),
	}, nil
}

func newOriginatorConfig(cfg *config.Config) (originator.Config, error) {
	res := originator.Config{
		TermsFile:    cfg.App.TermsFile,
		OrderTTL:     cfg.Order.TTL,
		ServiceFirst: cfg.App.ServiceFirst,
		Admin:        common.HexToAddress(cfg.Order.Admin),
	}

	if cfg.Order.Currency != "" {
		res.Currency = common.HexToAddress(cfg.Order.Currency)
	} else if cfg.App.DryRun {
		res.Currency = ledgermock.SettlementToken
	}

	var err error
	if cfg.Order.Notional != "" {
		if res.Notional, err = terms.ParseDecimal(cfg.Order.Notional); err != nil {
			return res, err
		}
	}
	if cfg.Order.InterestRate != "" {
		if res.InterestRate, err = terms.ParseDecimal(cfg.Order.InterestRate); err != nil {
			return res, err
		}
	}
	return res, nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BuildVersion is set at build time with -ldflags "-X ..."
var BuildVersion = "0.0.0-dev"

// Validation tags described here: https://pkg.go.dev/github.com/go-playground/validator/v10
type Config struct {
	App struct {
		DryRun       bool          `env:"DRY_RUN"        flag:"dry-run"        desc:"run against an in-memory ledger instead of the blockchain"`
		ServiceFirst bool          `env:"SERVICE_FIRST"  flag:"service-first"  desc:"service the first obligation right after issuance"`
		TermsFile    string        `env:"TERMS_FILE"     flag:"terms-file"     validate:"omitempty,file" desc:"json file with the template terms, built-in PAM terms if empty"`
		Timeout      time.Duration `env:"ORIGINATION_TIMEOUT" flag:"origination-timeout" validate:"omitempty,duration" desc:"deadline of the origination, submissions not finalized by then are reported as timeouts"`
	}
	Blockchain struct {
		EthNodeAddress  string        `env:"ETH_NODE_ADDRESS"   flag:"eth-node-address"   validate:"omitempty,url"`
		EthLegacyTx     bool          `env:"ETH_NODE_LEGACY_TX" flag:"eth-node-legacy-tx" desc:"use it to disable EIP-1559 transactions"`
		PollingInterval time.Duration `env:"ETH_POLLING_INTERVAL" flag:"eth-polling-interval" validate:"omitempty,duration" desc:"interval of polling for issued assets"`
		MaxReconnects   int           `env:"ETH_MAX_RECONNECTS"   flag:"eth-max-reconnects"   validate:"gte=0" desc:"max attempts to reach the node before giving up on log polling"`
	}
	Contracts struct {
		TemplateRegistry string `env:"TEMPLATE_REGISTRY_ADDRESS" flag:"template-registry-address" validate:"omitempty,eth_addr"`
		AssetIssuer      string `env:"ASSET_ISSUER_ADDRESS"      flag:"asset-issuer-address"      validate:"omitempty,eth_addr"`
		AssetRegistry    string `env:"ASSET_REGISTRY_ADDRESS"    flag:"asset-registry-address"    validate:"omitempty,eth_addr"`
		PAMEngine        string `env:"PAM_ENGINE_ADDRESS"        flag:"pam-engine-address"        validate:"omitempty,eth_addr"`
	}
	Identities struct {
		Mnemonic               string `env:"MNEMONIC"                 flag:"mnemonic"                 validate:"required_without_all=CreatorPrivateKey CounterpartyPrivateKey"`
		CreatorIndex           int    `env:"CREATOR_ACCOUNT_INDEX"    flag:"creator-account-index"    validate:"omitempty,min=0"`
		CounterpartyIndex      int    `env:"COUNTERPARTY_ACCOUNT_INDEX" flag:"counterparty-account-index" validate:"omitempty,min=0"`
		CreatorPrivateKey      string `env:"CREATOR_PRIVATE_KEY"      flag:"creator-private-key"      validate:"required_without=Mnemonic,omitempty,hexadecimal"`
		CounterpartyPrivateKey string `env:"COUNTERPARTY_PRIVATE_KEY" flag:"counterparty-private-key" validate:"required_without=Mnemonic,omitempty,hexadecimal"`
	}
	Log struct {
		Color         bool   `env:"LOG_COLOR"          flag:"log-color"`
		FolderPath    string `env:"LOG_FOLDER_PATH"    flag:"log-folder-path"    validate:"omitempty,dirpath" desc:"enables file logging and sets the folder path"`
		IsProd        bool   `env:"LOG_IS_PROD"        flag:"log-is-prod"        validate:""                  desc:"affects the format of the log output"`
		JSON          bool   `env:"LOG_JSON"           flag:"log-json"`
		LevelApp      string `env:"LOG_LEVEL_APP"      flag:"log-level-app"      validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelLedger   string `env:"LOG_LEVEL_LEDGER"   flag:"log-level-ledger"   validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelServicer string `env:"LOG_LEVEL_SERVICER" flag:"log-level-servicer" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	}
	Order struct {
		Notional     string        `env:"ORDER_NOTIONAL"      flag:"order-notional"      validate:"omitempty,number" desc:"notional principal override, 18 decimals fixed point"`
		InterestRate string        `env:"ORDER_INTEREST_RATE" flag:"order-interest-rate" validate:"omitempty,number" desc:"nominal interest rate override, 18 decimals fixed point"`
		Currency     string        `env:"ORDER_CURRENCY"      flag:"order-currency"      validate:"omitempty,eth_addr" desc:"currency and settlement token of the template"`
		Admin        string        `env:"ORDER_ADMIN"         flag:"order-admin"         validate:"omitempty,eth_addr"`
		TTL          time.Duration `env:"ORDER_TTL"           flag:"order-ttl"           validate:"omitempty,duration" desc:"order expiration relative to its creation, 0 never expires"`
	}
	Servicer struct {
		Enable   bool          `env:"SERVICER_ENABLE"   flag:"servicer-enable"   desc:"keep servicing issued assets on schedule"`
		Interval time.Duration `env:"SERVICER_INTERVAL" flag:"servicer-interval" validate:"omitempty,duration"`
	}
	Web struct {
		Enable  bool   `env:"WEB_ENABLE"  flag:"web-enable"`
		Address string `env:"WEB_ADDRESS" flag:"web-address" validate:"omitempty,hostname_port" desc:"http server address host:port"`
	}
}

func (cfg *Config) SetDefaults() {
	// App
	if cfg.App.Timeout == 0 {
		cfg.App.Timeout = 10 * time.Minute
	}

	// Blockchain
	if cfg.Blockchain.PollingInterval == 0 {
		cfg.Blockchain.PollingInterval = 10 * time.Second
	}
	if cfg.Blockchain.MaxReconnects == 0 {
		cfg.Blockchain.MaxReconnects = 30
	}

	// Identities

	// normalizes private keys
	cfg.Identities.CreatorPrivateKey = strings.TrimPrefix(cfg.Identities.CreatorPrivateKey, "0x")
	cfg.Identities.CounterpartyPrivateKey = strings.TrimPrefix(cfg.Identities.CounterpartyPrivateKey, "0x")
	if cfg.Identities.Mnemonic != "" && cfg.Identities.CounterpartyIndex == 0 {
		cfg.Identities.CounterpartyIndex = cfg.Identities.CreatorIndex + 1
	}

	// Log
	if cfg.Log.LevelApp == "" {
		cfg.Log.LevelApp = "debug"
	}
	if cfg.Log.LevelLedger == "" {
		cfg.Log.LevelLedger = "info"
	}
	if cfg.Log.LevelServicer == "" {
		cfg.Log.LevelServicer = "info"
	}

	// Order
	if cfg.Order.TTL == 0 {
		cfg.Order.TTL = time.Hour
	}

	// Servicer
	if cfg.Servicer.Interval == 0 {
		cfg.Servicer.Interval = 30 * time.Second
	}

	// Web
	if cfg.Web.Address == "" {
		cfg.Web.Address = "0.0.0.0:8080"
	}
}

// Validate checks the rules that depend on the mode of operation
func (cfg *Config) Validate() error {
	if cfg.App.DryRun {
		return nil
	}
	required := []struct{ name, value string }{
		{"ETH_NODE_ADDRESS", cfg.Blockchain.EthNodeAddress},
		{"TEMPLATE_REGISTRY_ADDRESS", cfg.Contracts.TemplateRegistry},
		{"ASSET_ISSUER_ADDRESS", cfg.Contracts.AssetIssuer},
		{"ASSET_REGISTRY_ADDRESS", cfg.Contracts.AssetRegistry},
		{"PAM_ENGINE_ADDRESS", cfg.Contracts.PAMEngine},
	}
	var errs []error
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required unless DRY_RUN is set", r.name))
		}
	}
	return errors.Join(errs...)
}

// GetSanitized returns a copy of the config with sensitive data removed
// explicitly adding each field here to avoid accidentally leaking sensitive data
func (cfg *Config) GetSanitized() interface{} {
	publicCfg := Config{}

	publicCfg.App = cfg.App

	publicCfg.Blockchain.EthLegacyTx = cfg.Blockchain.EthLegacyTx
	publicCfg.Blockchain.PollingInterval = cfg.Blockchain.PollingInterval
	publicCfg.Blockchain.MaxReconnects = cfg.Blockchain.MaxReconnects

	publicCfg.Contracts = cfg.Contracts

	publicCfg.Identities.CreatorIndex = cfg.Identities.CreatorIndex
	publicCfg.Identities.CounterpartyIndex = cfg.Identities.CounterpartyIndex

	publicCfg.Log = cfg.Log
	publicCfg.Order = cfg.Order
	publicCfg.Servicer = cfg.Servicer
	publicCfg.Web = cfg.Web

	return publicCfg
}

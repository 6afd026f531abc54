// Package params loads and validates the toml configuration.
package params

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/QuantumFusion-network/pvm-dapp-demo/codec"
	"github.com/QuantumFusion-network/pvm-dapp-demo/common"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

// defaults
const (
	DefaultEndpoint        = "wss://dev.qfnetwork.xyz/socket"
	DefaultContractAddress = "0x248e8fa75194f1dd671bdb220b59936a13fed06f8bd29ed1e5e06e6de2b974e6"
	DefaultCallPallet      = 51
	DefaultCallIndex       = 1
	DefaultOperandA        = 10
	DefaultOperandB        = 5

	defaultAPIPort    = 11556
	defaultLevelDBDir = "history"
)

var (
	locDataDir        string
	calcConfig        *CalcConfig
	loadConfigStarter sync.Once
)

// CalcConfig config items (decode from toml file)
type CalcConfig struct {
	Identifier string
	Node       *NodeConfig
	Wallet     *WalletConfig
	Contract   *ContractConfig
	APIServer  *APIServerConfig `toml:",omitempty" json:",omitempty"`
	MongoDB    *MongoDBConfig   `toml:",omitempty" json:",omitempty"`
	LevelDB    *LevelDBConfig   `toml:",omitempty" json:",omitempty"`
	Nats       *NatsConfig      `toml:",omitempty" json:",omitempty"`
	Email      *EmailConfig     `toml:",omitempty" json:",omitempty"`
	Extra      *ExtraConfig     `toml:",omitempty" json:",omitempty"`
}

// NodeConfig ledger node connection
type NodeConfig struct {
	Endpoint         string
	EventsMethod     string `toml:",omitempty" json:",omitempty"`
	MaxQueuedUpdates int    `toml:",omitempty" json:",omitempty"`
	HandshakeTimeout uint64 `toml:",omitempty" json:",omitempty"` // seconds
}

// WalletConfig wallet provider and local keystore
type WalletConfig struct {
	Provider string
	Origin   string
	Keystore *KeystoreConfig `toml:",omitempty" json:",omitempty"`
}

// KeystoreConfig local keystore provider
type KeystoreConfig struct {
	Name           string   `toml:",omitempty" json:",omitempty"`
	Dir            string
	PassphraseFile string   `json:"-"`
	Origins        []string `toml:",omitempty" json:",omitempty"`
	Watch          bool
}

// ContractConfig the called contract and where its results live
type ContractConfig struct {
	Address     string
	CallPallet  *uint8  `toml:",omitempty" json:",omitempty"`
	CallIndex   *uint8  `toml:",omitempty" json:",omitempty"`
	Pallet      string  `toml:",omitempty" json:",omitempty"`
	StorageItem string  `toml:",omitempty" json:",omitempty"`
	SS58Prefix  *uint16 `toml:",omitempty" json:",omitempty"`
	Tip         uint64  `toml:",omitempty" json:",omitempty"`
}

// APIServerConfig api service config
type APIServerConfig struct {
	Port             int
	AllowedOrigins   []string
	MaxRequestsLimit int
}

// MongoDBConfig mongodb config
type MongoDBConfig struct {
	DBURL    string   `toml:",omitempty" json:",omitempty"`
	DBURLs   []string `toml:",omitempty" json:",omitempty"`
	DBName   string
	UserName string `json:"-"`
	Password string `json:"-"`
}

// LevelDBConfig leveldb history, relative paths are under the data dir
type LevelDBConfig struct {
	Path string
}

// NatsConfig event log publication
type NatsConfig struct {
	URL     string
	Subject string `toml:",omitempty" json:",omitempty"`
}

// EmailConfig failure notification
type EmailConfig struct {
	Server   string
	Port     int
	From     string
	FromName string
	Password string `json:"-"`
	To       []string
	Cc       []string `toml:",omitempty" json:",omitempty"`
}

// ExtraConfig extra config
type ExtraConfig struct {
	IsDebugMode     bool    `toml:",omitempty" json:",omitempty"`
	DefaultOperandA float64 `toml:",omitempty" json:",omitempty"`
	DefaultOperandB float64 `toml:",omitempty" json:",omitempty"`
}

// NewDefaultConfig connects to the public dev node with the demo contract
func NewDefaultConfig() *CalcConfig {
	return &CalcConfig{
		Identifier: "calc",
		Node:       &NodeConfig{Endpoint: DefaultEndpoint},
		Wallet:     &WalletConfig{Provider: "polkadot-js", Origin: "calc"},
		Contract:   &ContractConfig{Address: DefaultContractAddress},
	}
}

// GetConfig get config
func GetConfig() *CalcConfig {
	return calcConfig
}

// SetConfig set config
func SetConfig(config *CalcConfig) {
	calcConfig = config
}

// GetIdentifier get identifier (to distinguish databases)
func GetIdentifier() string {
	return GetConfig().Identifier
}

// GetAPIPort get api service port
func GetAPIPort() int {
	return GetConfig().APIServer.GetPort()
}

// GetPort configured port or the default, nil safe
func (c *APIServerConfig) GetPort() int {
	if c == nil || c.Port == 0 {
		return defaultAPIPort
	}
	return c.Port
}

// GetContractAddress parsed contract address
func (c *ContractConfig) GetContractAddress() types.Hash {
	h, _ := types.ParseHash(c.Address)
	return h
}

// GetCallIndex pallet and call index of the execute call
func (c *ContractConfig) GetCallIndex() codec.CallIndex {
	ci := codec.CallIndex{Pallet: DefaultCallPallet, Call: DefaultCallIndex}
	if c.CallPallet != nil {
		ci.Pallet = *c.CallPallet
	}
	if c.CallIndex != nil {
		ci.Call = *c.CallIndex
	}
	return ci
}

// GetSS58Prefix address format
func (c *ContractConfig) GetSS58Prefix() uint16 {
	if c.SS58Prefix != nil {
		return *c.SS58Prefix
	}
	return codec.DefaultSS58Prefix
}

// GetDefaultOperands operands shown before the user types any
func GetDefaultOperands() (a, b float64) {
	if extra := GetConfig().Extra; extra != nil && (extra.DefaultOperandA != 0 || extra.DefaultOperandB != 0) {
		return extra.DefaultOperandA, extra.DefaultOperandB
	}
	return DefaultOperandA, DefaultOperandB
}

// IsDebugMode add more debugging log infos
func IsDebugMode() bool {
	return GetConfig().Extra != nil && GetConfig().Extra.IsDebugMode
}

// GetLevelDBPath absolute path of the leveldb history
func GetLevelDBPath() string {
	return GetConfig().GetLevelDBPath()
}

// GetLevelDBPath absolute path of the leveldb history, relative paths
// resolve against the data dir
func (c *CalcConfig) GetLevelDBPath() string {
	path := defaultLevelDBDir
	if c != nil && c.LevelDB != nil && c.LevelDB.Path != "" {
		path = c.LevelDB.Path
	}
	return common.AbsolutePath(GetDataDir(), path)
}

// GetMongoDBURLs every configured mongodb address
func (c *MongoDBConfig) GetMongoDBURLs() []string {
	if len(c.DBURLs) > 0 {
		return c.DBURLs
	}
	if c.DBURL != "" {
		return []string{c.DBURL}
	}
	return nil
}

// LoadConfigFile decode and check a config file
func LoadConfigFile(configFile string) (*CalcConfig, error) {
	if configFile == "" {
		return nil, fmt.Errorf("no config file specified")
	}
	if !common.FileExist(configFile) {
		return nil, fmt.Errorf("config file %v not exist", configFile)
	}
	config := NewDefaultConfig()
	if _, err := toml.DecodeFile(configFile, config); err != nil {
		return nil, fmt.Errorf("toml DecodeFile: %w", err)
	}
	if err := config.CheckConfig(); err != nil {
		return nil, fmt.Errorf("check config failed: %w", err)
	}
	return config, nil
}

// LoadConfig load config once, exit on error
func LoadConfig(configFile string) *CalcConfig {
	loadConfigStarter.Do(func() {
		log.Println("Config file is", configFile)
		config, err := LoadConfigFile(configFile)
		if err != nil {
			log.Fatalf("LoadConfig error: %v", err)
		}
		SetConfig(config)
		var bs []byte
		if log.JSONFormat {
			bs, _ = json.Marshal(config)
		} else {
			bs, _ = json.MarshalIndent(config, "", "  ")
		}
		log.Println("LoadConfig finished.", string(bs))
		log.Info("Check config success", "configFile", configFile)
	})
	return calcConfig
}

// SetDataDir set data dir
func SetDataDir(dir string) {
	if dir == "" {
		return
	}
	currDir, err := os.Getwd()
	if err != nil {
		log.Fatal("get current dir failed", "err", err)
	}
	locDataDir = common.AbsolutePath(currDir, common.ExpandHome(dir))
	log.Info("set data dir success", "datadir", locDataDir)
}

// GetDataDir get data dir
func GetDataDir() string {
	return locDataDir
}

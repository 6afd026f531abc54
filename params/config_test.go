package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuantumFusion-network/pvm-dapp-demo/codec"
)

const sampleConfig = `
Identifier = "calc-test"

[Node]
Endpoint = "ws://127.0.0.1:9944"
MaxQueuedUpdates = 32

[Wallet]
Provider = "keystore"
Origin = "calctools"

[Wallet.Keystore]
Dir = "/tmp/keys"
PassphraseFile = "/tmp/pass"

[Contract]
Address = "0x248e8fa75194f1dd671bdb220b59936a13fed06f8bd29ed1e5e06e6de2b974e6"
CallPallet = 60
SS58Prefix = 0

[APIServer]
Port = 12000
AllowedOrigins = ["*"]
MaxRequestsLimit = 10

[LevelDB]
Path = "db"

[Extra]
DefaultOperandA = 7
DefaultOperandB = 3
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	config, err := LoadConfigFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	SetConfig(config)

	assert.Equal(t, "calc-test", GetIdentifier())
	assert.Equal(t, 32, config.Node.MaxQueuedUpdates)
	assert.Equal(t, "/tmp/keys", config.Wallet.Keystore.Dir)
	assert.Equal(t, codec.CallIndex{Pallet: 60, Call: DefaultCallIndex}, config.Contract.GetCallIndex())
	assert.Equal(t, uint16(0), config.Contract.GetSS58Prefix())
	assert.Equal(t, DefaultContractAddress, config.Contract.GetContractAddress().String())
	assert.Equal(t, 12000, GetAPIPort())

	a, b := GetDefaultOperands()
	assert.Equal(t, 7.0, a)
	assert.Equal(t, 3.0, b)
	assert.Equal(t, filepath.Join(GetDataDir(), "db"), GetLevelDBPath())
}

func TestLevelDBPathFromConfig(t *testing.T) {
	var nilConfig *CalcConfig
	assert.Equal(t, filepath.Join(GetDataDir(), defaultLevelDBDir), nilConfig.GetLevelDBPath())

	config := NewDefaultConfig()
	config.LevelDB = &LevelDBConfig{Path: "/var/calc/history"}
	assert.Equal(t, "/var/calc/history", config.GetLevelDBPath())

	config.LevelDB.Path = "hist"
	assert.Equal(t, filepath.Join(GetDataDir(), "hist"), config.GetLevelDBPath())
}

func TestDefaults(t *testing.T) {
	config, err := LoadConfigFile(writeConfig(t, `Identifier = "x"`))
	require.NoError(t, err)
	SetConfig(config)

	assert.Equal(t, DefaultEndpoint, config.Node.Endpoint)
	assert.Equal(t, "polkadot-js", config.Wallet.Provider)
	assert.Equal(t, codec.CallIndex{Pallet: DefaultCallPallet, Call: DefaultCallIndex}, config.Contract.GetCallIndex())
	assert.Equal(t, codec.DefaultSS58Prefix, config.Contract.GetSS58Prefix())
	assert.Equal(t, defaultAPIPort, GetAPIPort())

	a, b := GetDefaultOperands()
	assert.Equal(t, 10.0, a)
	assert.Equal(t, 5.0, b)
}

func TestCheckConfig(t *testing.T) {
	for name, content := range map[string]string{
		"no identifier":   `Identifier = ""`,
		"http endpoint":   "Identifier = \"x\"\n[Node]\nEndpoint = \"http://127.0.0.1\"",
		"bad contract":    "Identifier = \"x\"\n[Contract]\nAddress = \"0x1234\"",
		"zero contract":   "Identifier = \"x\"\n[Contract]\nAddress = \"0x0000000000000000000000000000000000000000000000000000000000000000\"",
		"mongodb no name": "Identifier = \"x\"\n[MongoDB]\nDBURL = \"127.0.0.1:27017\"",
		"email no to":     "Identifier = \"x\"\n[Email]\nServer = \"smtp\"\nPort = 25\nFrom = \"a@b.c\"",
		"keystore no dir": "Identifier = \"x\"\n[Wallet]\nProvider = \"keystore\"\n[Wallet.Keystore]\nWatch = true",
	} {
		_, err := LoadConfigFile(writeConfig(t, content))
		assert.Error(t, err, name)
	}

	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
	_, err = LoadConfigFile("")
	assert.Error(t, err)
}

func TestMongoDBURLs(t *testing.T) {
	c := &MongoDBConfig{DBURL: "a"}
	assert.Equal(t, []string{"a"}, c.GetMongoDBURLs())
	c.DBURLs = []string{"b", "c"}
	assert.Equal(t, []string{"b", "c"}, c.GetMongoDBURLs())
}

package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuantumFusion-network/pvm-dapp-demo/internal/calcapi"
	"github.com/QuantumFusion-network/pvm-dapp-demo/internal/testutil/fakenode"
	"github.com/QuantumFusion-network/pvm-dapp-demo/params"
	"github.com/QuantumFusion-network/pvm-dapp-demo/query"
	"github.com/QuantumFusion-network/pvm-dapp-demo/rpc/client"
	"github.com/QuantumFusion-network/pvm-dapp-demo/rpc/restapi"
	"github.com/QuantumFusion-network/pvm-dapp-demo/rpc/rpcapi"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet/keystore"
)

type fixture struct {
	node *fakenode.Server
	app  *calcapi.App
	url  string
}

func setup(t *testing.T, apiCfg *params.APIServerConfig) *fixture {
	nodeSrv := fakenode.New()
	t.Cleanup(nodeSrv.Close)

	dir := t.TempDir()
	keyDir := filepath.Join(dir, "keys")
	_, _, _, err := keystore.Generate(keyDir, "alice", nil, 0)
	require.NoError(t, err)

	cfg := params.NewDefaultConfig()
	cfg.Node.Endpoint = nodeSrv.URL()
	cfg.Wallet.Keystore = &params.KeystoreConfig{Dir: keyDir}
	cfg.LevelDB = &params.LevelDBConfig{Path: filepath.Join(dir, "history")}
	cfg.APIServer = apiCfg

	app, err := calcapi.NewFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(app.Teardown)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, app.Init(ctx))

	httpSrv := httptest.NewServer(NewHandler(app, apiCfg))
	t.Cleanup(httpSrv.Close)
	return &fixture{node: nodeSrv, app: app, url: httpSrv.URL}
}

func (f *fixture) rpc(result interface{}, method string, params ...interface{}) error {
	return client.RPCPost(result, f.url+"/rpc", RPCServiceName+"."+method, params...)
}

func opRef(op types.Opcode) *types.Opcode {
	return &op
}

func waitFinal(t *testing.T, f *fixture, id string) *types.SubmissionRecord {
	var rec types.SubmissionRecord
	require.Eventually(t, func() bool {
		if err := client.RPCGet(&rec, f.url+"/submission/"+id); err != nil {
			return false
		}
		return rec.Status == types.StatusFinalized || rec.Status == types.StatusFailed
	}, 5*time.Second, 20*time.Millisecond)
	return &rec
}

func TestRPCFlow(t *testing.T) {
	f := setup(t, nil)

	var version string
	require.NoError(t, f.rpc(&version, "GetVersionInfo"))
	assert.Equal(t, params.VersionWithMeta, version)

	var status calcapi.StatusInfo
	require.NoError(t, f.rpc(&status, "GetStatus"))
	assert.Equal(t, calcapi.StatusIdle, status.Status)
	assert.Equal(t, "Connected", status.NodeState)

	var sub calcapi.SubmissionInfo
	err := f.rpc(&sub, "Submit", &rpcapi.RPCSubmitArgs{A: 10, B: 5, Op: opRef(types.OpAdd)})
	var jsonErr *client.JSONError
	require.ErrorAs(t, err, &jsonErr)
	assert.Equal(t, -32097, jsonErr.Code)

	var acc wallet.Account
	require.NoError(t, f.rpc(&acc, "ConnectWallet"))
	assert.NotEmpty(t, acc.Address)

	require.NoError(t, f.rpc(&sub, "Submit", &rpcapi.RPCSubmitArgs{A: 10, B: 5, Op: opRef(types.OpMultiply)}))
	assert.Equal(t, "10 * 5", sub.Expression)
	assert.NotEmpty(t, sub.ID)

	rec := waitFinal(t, f, sub.ID)
	require.Equal(t, types.StatusFinalized, rec.Status)
	require.NotNil(t, rec.Result)
	assert.Equal(t, int64(50), *rec.Result)

	var logs []string
	require.NoError(t, f.rpc(&logs, "GetLogs"))
	require.NotEmpty(t, logs)
	assert.Equal(t, "TRANSACTION RESULT: 50", logs[len(logs)-1])

	var res query.Result
	require.NoError(t, f.rpc(&res, "QueryResult", &rpcapi.RPCQueryArgs{Account: acc.Address}))
	assert.Equal(t, int64(50), res.Value)
	assert.Equal(t, acc.PublicKey, res.Account)

	var history []*types.SubmissionRecord
	require.NoError(t, f.rpc(&history, "GetHistory", &rpcapi.RPCHistoryArgs{Limit: 10}))
	require.Len(t, history, 1)
	assert.Equal(t, sub.ID, history[0].ID)

	err = f.rpc(rec, "GetSubmission", "nope")
	require.ErrorAs(t, err, &jsonErr)
	assert.Equal(t, -32099, jsonErr.Code)

	err = f.rpc(&sub, "Submit", &rpcapi.RPCSubmitArgs{A: 1.5, B: 5, Op: opRef(types.OpAdd)})
	require.ErrorAs(t, err, &jsonErr)
	assert.Equal(t, -32600, jsonErr.Code)

	var info calcapi.ServerInfo
	require.NoError(t, f.rpc(&info, "GetServerInfo"))
	assert.Equal(t, acc.Address, info.Account.Address)
	assert.Equal(t, f.node.URL(), info.Endpoint)
}

func TestRESTFlow(t *testing.T) {
	f := setup(t, nil)

	var acc wallet.Account
	require.NoError(t, client.RESTPost(&acc, f.url+"/wallet/connect", nil))

	var sub calcapi.SubmissionInfo
	body := &restapi.SubmitBody{A: 5, B: 10, Op: opRef(types.OpSubtract)}
	require.NoError(t, client.RESTPost(&sub, f.url+"/submit", body))
	rec := waitFinal(t, f, sub.ID)
	require.NotNil(t, rec.Result)
	assert.Equal(t, int64(-5), *rec.Result)

	var status calcapi.StatusInfo
	require.NoError(t, client.RPCGet(&status, f.url+"/status"))
	assert.True(t, strings.HasPrefix(status.Status, "Finalized: "), status.Status)
	require.NotNil(t, status.Submission)
	assert.Equal(t, sub.ID, status.Submission.ID)

	var res query.Result
	require.NoError(t, client.RPCGet(&res, f.url+"/result/"+acc.PublicKey.String()))
	assert.Equal(t, int64(-5), res.Value)

	var history []*types.SubmissionRecord
	require.NoError(t, client.RPCGet(&history, f.url+"/history/"+acc.Address+"?limit=5"))
	assert.Len(t, history, 1)

	err := client.RPCGet(&history, f.url+"/history/"+acc.Address+"?offset=x")
	var httpErr *client.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)

	err = client.RPCGet(rec, f.url+"/submission/unknown")
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)

	var out string
	require.NoError(t, client.RESTPost(&out, f.url+"/wallet/disconnect", nil))
	require.NoError(t, client.RPCGet(&status, f.url+"/status"))
	assert.Equal(t, calcapi.StatusIdle, status.Status)

	err = client.RESTPost(&sub, f.url+"/submit", body)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
}

func TestSubmitOpcodeForms(t *testing.T) {
	f := setup(t, nil)
	var acc wallet.Account
	require.NoError(t, f.rpc(&acc, "ConnectWallet"))

	var sub calcapi.SubmissionInfo
	require.NoError(t, client.RESTPost(&sub, f.url+"/submit", map[string]interface{}{"a": 10, "b": 5, "op": 2}))
	assert.Equal(t, "10 * 5", sub.Expression)
	waitFinal(t, f, sub.ID)

	require.NoError(t, f.rpc(&sub, "Submit", map[string]interface{}{"a": 10, "b": 5, "op": 1}))
	assert.Equal(t, "10 - 5", sub.Expression)
	waitFinal(t, f, sub.ID)

	require.NoError(t, f.rpc(&sub, "Submit", map[string]interface{}{"a": 10, "b": 5, "op": "Add"}))
	assert.Equal(t, "10 + 5", sub.Expression)
	waitFinal(t, f, sub.ID)

	var httpErr *client.HTTPError
	err := client.RESTPost(&sub, f.url+"/submit", map[string]interface{}{"a": 10, "b": 5})
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)

	err = client.RESTPost(&sub, f.url+"/submit", map[string]interface{}{"a": 10, "b": 5, "op": 3})
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)

	var jsonErr *client.JSONError
	err = f.rpc(&sub, "Submit", map[string]interface{}{"a": 10, "b": 5})
	require.ErrorAs(t, err, &jsonErr)
	assert.Equal(t, -32600, jsonErr.Code)
}

func TestRoutes(t *testing.T) {
	f := setup(t, &params.APIServerConfig{AllowedOrigins: []string{"http://localhost:3000"}})

	resp, err := http.Post(f.url+"/status", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Forbid 'POST' on '/status'")

	req, err := http.NewRequest(http.MethodGet, f.url+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	f := setup(t, &params.APIServerConfig{MaxRequestsLimit: 1})

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		resp, err := http.Get(f.url + "/versioninfo")
		require.NoError(t, err)
		resp.Body.Close()
		codes[resp.StatusCode]++
	}
	assert.NotZero(t, codes[http.StatusOK])
	assert.NotZero(t, codes[http.StatusTooManyRequests])
}

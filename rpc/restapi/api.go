// Package restapi serves the App over plain http routes.
package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/QuantumFusion-network/pvm-dapp-demo/internal/calcapi"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/node"
	"github.com/QuantumFusion-network/pvm-dapp-demo/params"
	"github.com/QuantumFusion-network/pvm-dapp-demo/query"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet"
)

const (
	defaultHistoryLimit = 20
	maxSubmitBodySize   = 1 << 12
)

// API rest handlers of an App
type API struct {
	app *calcapi.App
}

// NewAPI serves app
func NewAPI(app *calcapi.App) *API {
	return &API{app: app}
}

// SubmitBody body of POST /submit
type SubmitBody struct {
	A  float64       `json:"a"`
	B  float64       `json:"b"`
	Op *types.Opcode `json:"op"`
}

type errorBody struct {
	Error string `json:"error"`
}

func statusCode(err error) int {
	var invalid *types.InvalidRequestError
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrRecordNotFound), errors.Is(err, query.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, node.ErrNotConnected),
		errors.Is(err, wallet.ErrNotConnected),
		errors.Is(err, wallet.ErrNoAccount),
		errors.Is(err, wallet.ErrWalletUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeResponse(w http.ResponseWriter, resp interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(statusCode(err))
		resp = &errorBody{Error: err.Error()}
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn("[restapi] write response failed", "err", err)
	}
}

// ServerInfoHandler handler
func (a *API) ServerInfoHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, a.app.GetServerInfo(), nil)
}

// VersionInfoHandler handler
func (a *API) VersionInfoHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, params.VersionWithMeta, nil)
}

// StatusHandler handler
func (a *API) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, a.app.GetStatus(), nil)
}

// LogsHandler handler
func (a *API) LogsHandler(w http.ResponseWriter, r *http.Request) {
	logs := a.app.Logs()
	if logs == nil {
		logs = []string{}
	}
	writeResponse(w, logs, nil)
}

// ConnectWalletHandler handler
func (a *API) ConnectWalletHandler(w http.ResponseWriter, r *http.Request) {
	acc, err := a.app.ConnectWallet(r.Context())
	writeResponse(w, acc, err)
}

// DisconnectWalletHandler handler
func (a *API) DisconnectWalletHandler(w http.ResponseWriter, r *http.Request) {
	a.app.DisconnectWallet()
	writeResponse(w, "Success", nil)
}

// SubmitHandler handler
func (a *API) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	var body SubmitBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBodySize)).Decode(&body); err != nil {
		writeResponse(w, nil, &types.InvalidRequestError{Field: "body", Reason: err.Error()})
		return
	}
	op, err := types.RequireOpcode(body.Op)
	if err != nil {
		writeResponse(w, nil, err)
		return
	}
	sub, err := a.app.Submit(r.Context(), body.A, body.B, op)
	if err != nil {
		writeResponse(w, nil, err)
		return
	}
	writeResponse(w, calcapi.ConvertSubmission(sub), nil)
}

// ResultHandler handler, account may be hex or ss58
func (a *API) ResultHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account, err := calcapi.ParseAccount(vars["account"])
	if err != nil {
		writeResponse(w, nil, err)
		return
	}
	res, err := a.app.QueryResult(r.Context(), account)
	writeResponse(w, res, err)
}

// SubmissionHandler handler
func (a *API) SubmissionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := a.app.Record(vars["id"])
	writeResponse(w, res, err)
}

func getHistoryParams(r *http.Request) (address string, offset, limit int, err error) {
	vars := mux.Vars(r)
	vals := r.URL.Query()

	address = vars["address"]
	limit = defaultHistoryLimit

	if v := vals.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return address, 0, limit, &types.InvalidRequestError{Field: "offset", Reason: fmt.Sprintf("wrong value %q", v)}
		}
	}
	if v := vals.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			return address, offset, 0, &types.InvalidRequestError{Field: "limit", Reason: fmt.Sprintf("wrong value %q", v)}
		}
	}
	return address, offset, limit, nil
}

// HistoryHandler handler
func (a *API) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	address, offset, limit, err := getHistoryParams(r)
	if err != nil {
		writeResponse(w, nil, err)
		return
	}
	res, err := a.app.History(address, offset, limit)
	if res == nil && err == nil {
		res = []*types.SubmissionRecord{}
	}
	writeResponse(w, res, err)
}

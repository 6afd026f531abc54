// Package server wires the rpc and rest apis of an App into one http server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2"
	rpcjson "github.com/gorilla/rpc/v2/json2"

	"github.com/QuantumFusion-network/pvm-dapp-demo/internal/calcapi"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/metrics"
	"github.com/QuantumFusion-network/pvm-dapp-demo/params"
	"github.com/QuantumFusion-network/pvm-dapp-demo/rpc/restapi"
	"github.com/QuantumFusion-network/pvm-dapp-demo/rpc/rpcapi"
)

// RPCServiceName rpc methods are called as calc.<Method>
const RPCServiceName = "calc"

// StartAPIServer start api server
func StartAPIServer(app *calcapi.App) *http.Server {
	apiServer := app.Config().APIServer
	apiPort := apiServer.GetPort()

	log.Info("JSON RPC service listen and serving", "port", apiPort, "allowedOrigins", allowedOrigins(apiServer))
	svr := &http.Server{
		Addr:         fmt.Sprintf(":%v", apiPort),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		Handler:      NewHandler(app, apiServer),
	}
	go func() {
		if err := svr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ListenAndServe error", "err", err)
		}
	}()
	return svr
}

// StopAPIServer shuts svr down gracefully
func StopAPIServer(svr *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svr.Shutdown(ctx); err != nil {
		log.Warn("shutdown api server failed", "err", err)
	}
}

func allowedOrigins(c *params.APIServerConfig) []string {
	if c == nil {
		return nil
	}
	return c.AllowedOrigins
}

// NewHandler the router behind cors and the optional rate limiter
func NewHandler(app *calcapi.App, c *params.APIServerConfig) http.Handler {
	corsOptions := []handlers.CORSOption{
		handlers.AllowedMethods([]string{"GET", "POST"}),
	}
	if origins := allowedOrigins(c); len(origins) != 0 {
		corsOptions = append(corsOptions,
			handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type"}),
			handlers.AllowedOrigins(origins),
		)
	}
	var h http.Handler = handlers.CORS(corsOptions...)(initRouter(app))

	if c != nil && c.MaxRequestsLimit > 0 {
		lmt := tollbooth.NewLimiter(float64(c.MaxRequestsLimit), nil)
		lmt.SetMessage("too many requests")
		h = tollbooth.LimitHandler(lmt, h)
	}
	return h
}

func initRouter(app *calcapi.App) *mux.Router {
	r := mux.NewRouter()

	rpcserver := rpc.NewServer()
	rpcserver.RegisterCodec(rpcjson.NewCodec(), "application/json")
	_ = rpcserver.RegisterService(rpcapi.NewRPCAPI(app), RPCServiceName)

	rest := restapi.NewAPI(app)

	r.Handle("/rpc", rpcserver)
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/serverinfo", rest.ServerInfoHandler).Methods("GET")
	r.HandleFunc("/versioninfo", rest.VersionInfoHandler).Methods("GET")
	r.HandleFunc("/status", rest.StatusHandler).Methods("GET")
	r.HandleFunc("/logs", rest.LogsHandler).Methods("GET")
	r.HandleFunc("/wallet/connect", rest.ConnectWalletHandler).Methods("POST")
	r.HandleFunc("/wallet/disconnect", rest.DisconnectWalletHandler).Methods("POST")
	r.HandleFunc("/submit", rest.SubmitHandler).Methods("POST")
	r.HandleFunc("/result/{account}", rest.ResultHandler).Methods("GET")
	r.HandleFunc("/submission/{id}", rest.SubmissionHandler).Methods("GET")
	r.HandleFunc("/history/{address}", rest.HistoryHandler).Methods("GET")

	methodsExcluesGet := []string{"POST", "HEAD", "PUT", "DELETE", "CONNECT", "OPTIONS", "TRACE", "PATCH"}
	methodsExcluesPost := []string{"GET", "HEAD", "PUT", "DELETE", "CONNECT", "OPTIONS", "TRACE", "PATCH"}

	for _, path := range []string{
		"/metrics",
		"/serverinfo",
		"/versioninfo",
		"/status",
		"/logs",
		"/result/{account}",
		"/submission/{id}",
		"/history/{address}",
	} {
		r.HandleFunc(path, warnHandler).Methods(methodsExcluesGet...)
	}
	for _, path := range []string{
		"/wallet/connect",
		"/wallet/disconnect",
		"/submit",
	} {
		r.HandleFunc(path, warnHandler).Methods(methodsExcluesPost...)
	}

	return r
}

func warnHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Forbid '%v' on '%v'\n", r.Method, r.RequestURI)
}

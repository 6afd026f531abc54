// Package utils holds the flags and helpers shared by the command line tools.
package utils

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/params"
)

var (
	clientIdentifier string
	gitCommit        string
	gitDate          string
)

// NewApp creates an app with sane defaults.
func NewApp(identifier, gitcommit, gitdate, usage string) *cli.App {
	clientIdentifier = identifier
	gitCommit = gitcommit
	gitDate = gitdate
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Version = params.VersionWithCommit(gitCommit, gitDate)
	app.Usage = usage
	return app
}

// WaitForSignal waits for an interrupt or terminate signal and runs
// cleanup once
func WaitForSignal(cleanup func()) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	sig := <-signalChan
	log.Info("receive signal, exiting", "signal", sig)
	cleanup()
}

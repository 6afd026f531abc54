package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/QuantumFusion-network/pvm-dapp-demo/cmd/utils"
	"github.com/QuantumFusion-network/pvm-dapp-demo/internal/calcapi"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/params"
	rpcserver "github.com/QuantumFusion-network/pvm-dapp-demo/rpc/server"
)

var (
	clientIdentifier = "calcserver"
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
	// The app that holds all commands and flags.
	app = utils.NewApp(clientIdentifier, gitCommit, gitDate, "the calcserver command line interface")

	connectWalletFlag = &cli.BoolFlag{
		Name:  "connect",
		Usage: "connect the wallet on startup",
	}
)

func initApp() {
	// Initialize the CLI app and start action
	app.Action = calcserver
	app.HideVersion = true // we have a command to print the version
	app.Commands = []*cli.Command{
		utils.VersionCommand,
	}
	app.Flags = []cli.Flag{
		utils.ConfigFileFlag,
		utils.DataDirFlag,
		utils.LogFileFlag,
		utils.LogRotationFlag,
		utils.LogMaxAgeFlag,
		utils.VerbosityFlag,
		utils.JSONFormatFlag,
		utils.ColorFormatFlag,
		connectWalletFlag,
	}
	sort.Sort(cli.CommandsByName(app.Commands))
}

func main() {
	initApp()
	if err := app.Run(os.Args); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func calcserver(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	if ctx.NArg() > 0 {
		return fmt.Errorf("invalid command: %q", ctx.Args().Get(0))
	}
	utils.InitDataDir(ctx)
	config := params.LoadConfig(utils.GetConfigFilePath(ctx))

	calc, err := calcapi.NewFromConfig(config)
	if err != nil {
		return err
	}

	log.Info("connecting to node", "endpoint", config.Node.Endpoint)
	initCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = calc.Init(initCtx)
	cancel()
	if err != nil {
		// the api still reports the failure through the status line
		log.Warn("start without node connection", "status", calc.StatusText())
	}

	if ctx.Bool(connectWalletFlag.Name) {
		if acc, err := calc.ConnectWallet(ctx.Context); err != nil {
			log.Warn("connect wallet failed", "status", calc.StatusText())
		} else {
			log.Info("wallet connected", "address", acc.Address, "provider", acc.Provider)
		}
	}

	svr := rpcserver.StartAPIServer(calc)

	utils.WaitForSignal(func() {
		rpcserver.StopAPIServer(svr)
		calc.Teardown()
	})
	return nil
}

package main

import (
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/QuantumFusion-network/pvm-dapp-demo/cmd/utils"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
)

var (
	clientIdentifier = "calctools"
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
	// The app that holds all commands and flags.
	app = utils.NewApp(clientIdentifier, gitCommit, gitDate, "the calctools command line interface")
)

func initApp() {
	app.HideVersion = true // we have a command to print the version
	app.Commands = []*cli.Command{
		utils.VersionCommand,
		serverInfoCommand,
		connectCommand,
		submitCommand,
		statusCommand,
		logsCommand,
		resultCommand,
		submissionCommand,
		historyCommand,
		newKeyCommand,
		accountsCommand,
	}
	app.Flags = utils.CommonLogFlags
	sort.Sort(cli.CommandsByName(app.Commands))
}

func main() {
	initApp()
	if err := app.Run(os.Args); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

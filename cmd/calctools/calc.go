package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/QuantumFusion-network/pvm-dapp-demo/cmd/utils"
	"github.com/QuantumFusion-network/pvm-dapp-demo/internal/calcapi"
	"github.com/QuantumFusion-network/pvm-dapp-demo/params"
	"github.com/QuantumFusion-network/pvm-dapp-demo/query"
	"github.com/QuantumFusion-network/pvm-dapp-demo/rpc/client"
	"github.com/QuantumFusion-network/pvm-dapp-demo/rpc/rpcapi"
	rpcserver "github.com/QuantumFusion-network/pvm-dapp-demo/rpc/server"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet"
)

var (
	operandAFlag = &cli.Float64Flag{
		Name:  "a",
		Usage: "first operand",
		Value: params.DefaultOperandA,
	}
	operandBFlag = &cli.Float64Flag{
		Name:  "b",
		Usage: "second operand",
		Value: params.DefaultOperandB,
	}
	opcodeFlag = &cli.StringFlag{
		Name:  "op",
		Usage: "operation: add|sub|mul, + - * or 1 2 3",
		Value: types.OpAdd.String(),
	}
	waitFlag = &cli.BoolFlag{
		Name:  "wait",
		Usage: "follow the status until finalized or failed",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "how long to follow the status",
		Value: 2 * time.Minute,
	}
	offsetFlag = &cli.IntFlag{
		Name:  "offset",
		Usage: "history offset",
	}
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "history limit",
		Value: 20,
	}

	serverFlags = []cli.Flag{utils.ServerFlag}

	serverInfoCommand = &cli.Command{
		Action: serverInfo,
		Name:   "serverinfo",
		Usage:  "show server info",
		Flags:  serverFlags,
	}
	connectCommand = &cli.Command{
		Action: connectWallet,
		Name:   "connect",
		Usage:  "connect the server wallet",
		Flags:  serverFlags,
	}
	submitCommand = &cli.Command{
		Action:    submit,
		Name:      "submit",
		Usage:     "submit a calculation",
		ArgsUsage: " ",
		Description: `
submit signs and submits one execute call with the connected account,
eg. calctools submit --a 10 --b 5 --op mul --wait
`,
		Flags: append([]cli.Flag{operandAFlag, operandBFlag, opcodeFlag, waitFlag, timeoutFlag}, serverFlags...),
	}
	statusCommand = &cli.Command{
		Action: status,
		Name:   "status",
		Usage:  "show the status line",
		Flags:  serverFlags,
	}
	logsCommand = &cli.Command{
		Action: logs,
		Name:   "logs",
		Usage:  "show the event log of the latest block inclusion",
		Flags:  serverFlags,
	}
	resultCommand = &cli.Command{
		Action:    result,
		Name:      "result",
		Usage:     "query the stored result of an account",
		ArgsUsage: "[account]",
		Flags:     serverFlags,
	}
	submissionCommand = &cli.Command{
		Action:    submission,
		Name:      "submission",
		Usage:     "show a submission record",
		ArgsUsage: "<id>",
		Flags:     serverFlags,
	}
	historyCommand = &cli.Command{
		Action:    history,
		Name:      "history",
		Usage:     "list submissions of an account, newest first",
		ArgsUsage: "[address]",
		Flags:     append([]cli.Flag{offsetFlag, limitFlag}, serverFlags...),
	}
)

func rpcCall(ctx *cli.Context, result interface{}, method string, args ...interface{}) error {
	server := strings.TrimSuffix(ctx.String(utils.ServerFlag.Name), "/")
	if server == "" {
		return errors.New("must specify server")
	}
	return client.RPCPost(result, server+"/rpc", rpcserver.RPCServiceName+"."+method, args...)
}

func serverInfo(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	var info calcapi.ServerInfo
	if err := rpcCall(ctx, &info, "GetServerInfo"); err != nil {
		return err
	}
	printKV("Identifier", info.Identifier)
	printKV("Version", info.Version)
	printKV("Endpoint", info.Endpoint)
	printKV("Node", info.NodeState)
	printKV("Contract", info.Contract)
	printKV("Call index", info.CallIndex)
	printKV("Provider", info.Provider)
	if info.Account != nil {
		printKV("Account", info.Account.Address)
	}
	printKV("In flight", fmt.Sprint(info.InFlight))
	return nil
}

func connectWallet(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	var acc wallet.Account
	err := rpcCall(ctx, &acc, "ConnectWallet")
	if err != nil {
		printStatus("Failed to connect: " + err.Error())
		return err
	}
	printStatus(wallet.StatusText(&acc))
	return nil
}

func submit(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	op, err := types.ParseOpcode(ctx.String(opcodeFlag.Name))
	if err != nil {
		return err
	}
	args := &rpcapi.RPCSubmitArgs{
		A:  ctx.Float64(operandAFlag.Name),
		B:  ctx.Float64(operandBFlag.Name),
		Op: &op,
	}
	var sub calcapi.SubmissionInfo
	if err = rpcCall(ctx, &sub, "Submit", args); err != nil {
		printStatus("Failed: " + err.Error())
		return err
	}
	printKV("Submission", sub.ID)
	printKV("Expression", sub.Expression)
	printStatus(sub.StatusText)
	if !ctx.Bool(waitFlag.Name) {
		return nil
	}
	return follow(ctx, sub.ID, ctx.Duration(timeoutFlag.Name))
}

// follow polls the submission record and prints each new status
func follow(ctx *cli.Context, id string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var last types.StatusKind
	for time.Now().Before(deadline) {
		var rec types.SubmissionRecord
		if err := rpcCall(ctx, &rec, "GetSubmission", id); err != nil {
			return err
		}
		if rec.Status != last {
			last = rec.Status
			printStatus(recordStatusText(&rec))
		}
		switch rec.Status {
		case types.StatusFinalized, types.StatusFailed:
			printLogs(rec.Logs)
			if rec.Status == types.StatusFailed {
				return errors.New(rec.Reason)
			}
			return nil
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("submission %v not finalized after %v", id, timeout)
}

func recordStatusText(rec *types.SubmissionRecord) string {
	switch rec.Status {
	case types.StatusSubmitted:
		return "Submitted: " + rec.TxHash
	case types.StatusInBlock:
		return "In block: " + rec.BlockHash
	case types.StatusFinalized:
		return "Finalized: " + rec.BlockHash
	case types.StatusFailed:
		return "Failed: " + rec.Reason
	}
	return rec.Status.String()
}

func status(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	var info calcapi.StatusInfo
	if err := rpcCall(ctx, &info, "GetStatus"); err != nil {
		return err
	}
	printKV("Node", info.NodeState)
	if info.Account != "" {
		printKV("Account", info.Account)
	}
	printStatus(info.Status)
	return nil
}

func logs(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	var lines []string
	if err := rpcCall(ctx, &lines, "GetLogs"); err != nil {
		return err
	}
	printLogs(lines)
	return nil
}

func result(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	var res query.Result
	args := &rpcapi.RPCQueryArgs{Account: ctx.Args().First()}
	if err := rpcCall(ctx, &res, "QueryResult", args); err != nil {
		return err
	}
	printKV("Contract", res.Contract.String())
	printKV("Account", res.Account.String())
	printKV("Result", fmt.Sprint(res.Value))
	return nil
}

func submission(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	if ctx.NArg() != 1 {
		_ = cli.ShowCommandHelp(ctx, "submission")
		return fmt.Errorf("invalid arguments: %q", ctx.Args())
	}
	var rec types.SubmissionRecord
	if err := rpcCall(ctx, &rec, "GetSubmission", ctx.Args().First()); err != nil {
		return err
	}
	printRecord(&rec)
	return nil
}

func history(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	args := &rpcapi.RPCHistoryArgs{
		Address: ctx.Args().First(),
		Offset:  ctx.Int(offsetFlag.Name),
		Limit:   ctx.Int(limitFlag.Name),
	}
	var records []*types.SubmissionRecord
	if err := rpcCall(ctx, &records, "GetHistory", args); err != nil {
		return err
	}
	for i, rec := range records {
		if i > 0 {
			fmt.Println()
		}
		printRecord(rec)
	}
	return nil
}

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/QuantumFusion-network/pvm-dapp-demo/eventlog"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

var (
	keyColor     = color.New(color.FgCyan)
	failedColor  = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	resultColor  = color.New(color.FgYellow, color.Bold)
)

func printKV(key, value string) {
	fmt.Printf("%s %s\n", keyColor.Sprintf("%-12s", key+":"), value)
}

func printStatus(line string) {
	switch {
	case strings.HasPrefix(line, "Failed"):
		failedColor.Println(line)
	case strings.HasPrefix(line, "Finalized"), strings.HasPrefix(line, "Wallet connected"):
		successColor.Println(line)
	default:
		fmt.Println(line)
	}
}

func printLogs(lines []string) {
	for _, line := range lines {
		if strings.HasPrefix(line, eventlog.ResultPrefix) {
			resultColor.Println(line)
			continue
		}
		fmt.Println(line)
	}
}

func printRecord(rec *types.SubmissionRecord) {
	printKV("Submission", rec.ID)
	printKV("Address", rec.Address)
	printKV("Expression", fmt.Sprintf("%d %s %d", rec.OperandA, opSymbol(rec.Opcode), rec.OperandB))
	printKV("Nonce", fmt.Sprint(rec.Nonce))
	if rec.TxHash != "" {
		printKV("Tx hash", rec.TxHash)
	}
	printKV("Time", time.Unix(rec.Timestamp, 0).Format(time.RFC3339))
	printStatus(recordStatusText(rec))
	if rec.Result != nil {
		resultColor.Println(eventlog.ResultLine(*rec.Result))
	}
}

func opSymbol(name string) string {
	op, err := types.ParseOpcode(name)
	if err != nil {
		return name
	}
	return op.Symbol()
}

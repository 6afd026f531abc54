package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/QuantumFusion-network/pvm-dapp-demo/cmd/utils"
	"github.com/QuantumFusion-network/pvm-dapp-demo/codec"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet/keystore"
)

var (
	ss58PrefixFlag = &cli.UintFlag{
		Name:  "prefix",
		Usage: "ss58 address prefix",
		Value: uint(codec.DefaultSS58Prefix),
	}

	newKeyCommand = &cli.Command{
		Action:    newKey,
		Name:      "newkey",
		Usage:     "generate a new account in the keystore directory",
		ArgsUsage: "<name>",
		Description: `
newkey writes <keydir>/<name>.json and prints the mnemonic once.
With --password the mnemonic is stored encrypted.
`,
		Flags: []cli.Flag{utils.KeyDirFlag, utils.PasswordFileFlag, ss58PrefixFlag},
	}
	accountsCommand = &cli.Command{
		Action: accounts,
		Name:   "accounts",
		Usage:  "list the accounts of the keystore directory",
		Flags:  []cli.Flag{utils.KeyDirFlag, ss58PrefixFlag},
	}
)

func newKey(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	if ctx.NArg() != 1 {
		_ = cli.ShowCommandHelp(ctx, "newkey")
		return fmt.Errorf("invalid arguments: %q", ctx.Args())
	}
	var passphrase []byte
	if passFile := ctx.String(utils.PasswordFileFlag.Name); passFile != "" {
		data, err := os.ReadFile(passFile)
		if err != nil {
			return fmt.Errorf("read password file failed: %w", err)
		}
		passphrase = []byte(strings.TrimSpace(string(data)))
	}
	kf, mnemonic, path, err := keystore.Generate(
		ctx.String(utils.KeyDirFlag.Name),
		ctx.Args().First(),
		passphrase,
		uint16(ctx.Uint(ss58PrefixFlag.Name)),
	)
	if err != nil {
		return err
	}
	log.Info("generate key success", "path", path)
	printKV("Address", kf.Address)
	printKV("Public key", kf.PublicKey.String())
	printKV("Mnemonic", mnemonic)
	failedColor.Println("Write down the mnemonic, it is not shown again.")
	return nil
}

func accounts(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	store, err := keystore.Open(keystore.Config{
		Dir:        ctx.String(utils.KeyDirFlag.Name),
		SS58Prefix: uint16(ctx.Uint(ss58PrefixFlag.Name)),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.Accounts(context.Background())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No accounts found. Please create one first.")
		return nil
	}
	for _, acc := range list {
		printKV(acc.Name, acc.Address)
	}
	return nil
}

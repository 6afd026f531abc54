package params

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

// CheckConfig check config
func (c *CalcConfig) CheckConfig() (err error) {
	if c.Identifier == "" {
		return errors.New("must config non empty 'Identifier'")
	}
	if c.Node == nil {
		return errors.New("must config 'Node'")
	}
	if err = c.Node.CheckConfig(); err != nil {
		return err
	}
	if c.Wallet == nil {
		return errors.New("must config 'Wallet'")
	}
	if err = c.Wallet.CheckConfig(); err != nil {
		return err
	}
	if c.Contract == nil {
		return errors.New("must config 'Contract'")
	}
	if err = c.Contract.CheckConfig(); err != nil {
		return err
	}
	if c.MongoDB != nil {
		if err = c.MongoDB.CheckConfig(); err != nil {
			return err
		}
	}
	if c.Email != nil {
		if err = c.Email.CheckConfig(); err != nil {
			return err
		}
	}
	if c.APIServer != nil && c.APIServer.MaxRequestsLimit < 0 {
		return errors.New("'APIServer.MaxRequestsLimit' must not be negative")
	}
	return nil
}

// CheckConfig check node config
func (c *NodeConfig) CheckConfig() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("wrong 'Node.Endpoint' %q: %w", c.Endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("wrong 'Node.Endpoint' %q: scheme must be ws or wss", c.Endpoint)
	}
	if c.MaxQueuedUpdates < 0 {
		return errors.New("'Node.MaxQueuedUpdates' must not be negative")
	}
	return nil
}

// CheckConfig check wallet config
func (c *WalletConfig) CheckConfig() error {
	if c.Provider == "" {
		return errors.New("must config 'Wallet.Provider'")
	}
	if c.Keystore != nil && c.Keystore.Dir == "" {
		return errors.New("must config 'Wallet.Keystore.Dir'")
	}
	return nil
}

// CheckConfig check contract config
func (c *ContractConfig) CheckConfig() error {
	h, err := types.ParseHash(c.Address)
	if err != nil {
		return fmt.Errorf("wrong 'Contract.Address' %q: %w", c.Address, err)
	}
	if h.IsZero() {
		return errors.New("'Contract.Address' must not be zero")
	}
	return nil
}

// CheckConfig check mongodb config
func (c *MongoDBConfig) CheckConfig() error {
	if len(c.GetMongoDBURLs()) == 0 {
		return errors.New("must config 'MongoDB.DBURL' or 'MongoDB.DBURLs'")
	}
	if c.DBName == "" {
		return errors.New("must config 'MongoDB.DBName'")
	}
	return nil
}

// CheckConfig check email config
func (c *EmailConfig) CheckConfig() error {
	if c.Server == "" || c.Port == 0 {
		return errors.New("must config 'Email.Server' and 'Email.Port'")
	}
	if c.From == "" {
		return errors.New("must config 'Email.From'")
	}
	if len(c.To) == 0 {
		return errors.New("must config 'Email.To'")
	}
	return nil
}

package utils

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

// ReadPassword reads the keyfile password from the first line of path.
func ReadPassword(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read password file: %w", err)
	}
	first, _, _ := strings.Cut(string(content), "\n")
	return strings.TrimRight(first, "\r"), nil
}

// LoadKey decrypts the keyfile at keyPath with the password stored in
// passwordPath.
func LoadKey(keyPath, passwordPath string) (*keystore.Key, error) {
	keyjson, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the keyfile at '%s': %w", keyPath, err)
	}
	password, err := ReadPassword(passwordPath)
	if err != nil {
		return nil, err
	}
	key, err := keystore.DecryptKey(keyjson, password)
	if err != nil {
		return nil, fmt.Errorf("error decrypting key: %w", err)
	}
	return key, nil
}

// NewSigner returns the transaction signer of key on chain chainID.
func NewSigner(key *keystore.Key, chainID *big.Int) (common.Address, bind.SignerFn, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key.PrivateKey, chainID)
	if err != nil {
		return common.Address{}, nil, err
	}
	return opts.From, opts.Signer, nil
}

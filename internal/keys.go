package fleetauth

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/davidallendj/go-utils/pathx"
)

// KeyPairGenerator writes an EC key pair to the two paths. The flow only
// cares that the files exist before the hosted-key check runs, not how they
// were produced.
type KeyPairGenerator func(privateKeyPath string, publicKeyPath string) error

// OpensslKeyPair generates a prime256v1 key pair by shelling out to
// openssl, matching what the vendor expects for command signing.
func OpensslKeyPair(privateKeyPath string, publicKeyPath string) error {
	if err := os.MkdirAll(filepath.Dir(privateKeyPath), 0o755); err != nil {
		return fmt.Errorf("failed to create key directory: %v", err)
	}
	cmd := exec.Command("openssl", "ecparam", "-name", "prime256v1", "-genkey", "-noout", "-out", privateKeyPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to generate private key: %v: %s", err, out)
	}
	cmd = exec.Command("openssl", "ec", "-in", privateKeyPath, "-pubout", "-out", publicKeyPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to derive public key: %v: %s", err, out)
	}
	return nil
}

// EnsureKeyPair generates the pair when forced or when either file is
// missing.
func EnsureKeyPair(generate KeyPairGenerator, privateKeyPath string, publicKeyPath string, force bool) (bool, error) {
	if !force {
		privExists, err := pathx.PathExists(privateKeyPath)
		if err != nil {
			return false, fmt.Errorf("failed to check private key path: %v", err)
		}
		pubExists, err := pathx.PathExists(publicKeyPath)
		if err != nil {
			return false, fmt.Errorf("failed to check public key path: %v", err)
		}
		if privExists && pubExists {
			return false, nil
		}
	}
	if err := generate(privateKeyPath, publicKeyPath); err != nil {
		return false, err
	}
	return true, nil
}

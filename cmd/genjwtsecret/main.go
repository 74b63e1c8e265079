// Command genjwtsecret writes a random HS256 signing secret to jwt.secret.
package main

import (
	"fmt"
	"os"

	"github.com/harrylevesque/primetrade/internal/crypto"
)

func main() {
	secretFile := "jwt.secret"
	if len(os.Args) > 1 {
		secretFile = os.Args[1]
	}
	if err := writeSecret(secretFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("JWT secret written to %s\n", secretFile)
}

// writeSecret creates path with a 64 character hex secret. An existing file is never replaced.
func writeSecret(path string) error {
	secret, err := crypto.RandomHex(32)
	if err != nil {
		return fmt.Errorf("generating secret: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s already exists. Refusing to overwrite", path)
		}
		return err
	}
	if _, err := f.WriteString(secret + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

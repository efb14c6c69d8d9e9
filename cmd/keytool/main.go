// Command keytool encrypts an exchange API secret with a password so the bot
// can load it at startup without keeping the plaintext on disk. The secret and
// password are read from CANDLEBOT_SECRET and CANDLEBOT_PASSWORD to keep them
// out of shell history.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/minutebar/candlebot/internal/crypto"
)

func main() {
	out := flag.String("out", "secret.enc.json", "path to write the encrypted secret file")
	flag.Parse()

	secret := os.Getenv("CANDLEBOT_SECRET")
	password := os.Getenv("CANDLEBOT_PASSWORD")
	if secret == "" || password == "" {
		fmt.Fprintln(os.Stderr, "keytool: CANDLEBOT_SECRET and CANDLEBOT_PASSWORD must be set")
		os.Exit(2)
	}

	data, err := crypto.EncryptSecret(secret, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keytool: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "keytool: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("encrypted secret written to %s\n", *out)
}

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Shoshin-Dev-Ivy/portfolio-backend/pkg"
)

// Generates the two secrets the admin gate needs: a bcrypt hash of the
// chosen admin key and a random token signing secret. Both are printed
// to stdout for manual placement in the deployment environment, never
// written anywhere.
func main() {
	key := flag.String("key", "", "admin key (passphrase) to hash")
	flag.Parse()

	if *key == "" {
		fmt.Println("usage: secrets -key <admin passphrase>")
		os.Exit(1)
	}

	keyHash, err := pkg.HashPassword(*key)
	if err != nil {
		fmt.Printf("hash admin key: %s\n", err)
		os.Exit(1)
	}

	signingSecret, err := pkg.GenerateRandomHexString(64)
	if err != nil {
		fmt.Printf("generate signing secret: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("PORTFOLIO_ADMIN_KEY_HASH=%s\n", keyHash)
	fmt.Printf("PORTFOLIO_JWT_SECRET=%s\n", signingSecret)
}

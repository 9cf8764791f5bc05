package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"zenbridge-backend/internal/confidential"
)

// Generates a Curve25519 sealing keypair for one capability scope (owner,
// relayer or compliance). The public key goes into config.yaml; the private
// key stays with the scope holder.
func main() {
	pub, priv, err := confidential.GenerateRecipientKey()
	if err != nil {
		fmt.Printf("Error generating keypair: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Println("Sealing Keypair")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Printf("Public key (config.yaml):  %s\n", hex.EncodeToString(pub[:]))
	fmt.Printf("Private key (keep secret): %s\n", hex.EncodeToString(priv[:]))
}

// Command keygen emits a fresh set of key material for the token subsystem
// in KEY=value form, ready to paste into an env file. Run it once per
// environment; rotating a key means re-running it and restarting with the
// new values.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/ledgerline/shopauth/internal/token/keysource"
	"github.com/ledgerline/shopauth/pkg/idx"
	"github.com/ledgerline/shopauth/pkg/pasetov4"
)

func main() {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		log.Fatalf("failed to generate signing seed: %v", err)
	}
	private := ed25519.NewKeyFromSeed(seed)
	public := private.Public().(ed25519.PublicKey)

	accessKey, err := pasetov4.GenerateLocalKey()
	if err != nil {
		log.Fatalf("failed to generate access key: %v", err)
	}
	refreshKey, err := pasetov4.GenerateLocalKey()
	if err != nil {
		log.Fatalf("failed to generate refresh key: %v", err)
	}

	b64 := base64.StdEncoding.EncodeToString

	fmt.Printf("%s=%s\n", keysource.EnvAccessSigningSeed, b64(seed))
	fmt.Printf("%s=%s\n", keysource.EnvAccessPublicKey, b64(public))
	fmt.Printf("%s=%s\n", keysource.EnvAccessAsymKeyID, idx.New().String())
	fmt.Printf("%s=%s\n", keysource.EnvAccessLocalKey, b64(accessKey[:]))
	fmt.Printf("%s=%s\n", keysource.EnvAccessLocalKeyID, idx.New().String())
	fmt.Printf("%s=%s\n", keysource.EnvRefreshLocalKey, b64(refreshKey[:]))
	fmt.Printf("%s=%s\n", keysource.EnvRefreshLocalKeyID, idx.New().String())
}

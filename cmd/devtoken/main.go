// Command devtoken prints an access token for the given user id, signed
// with the server's secret key and validity duration.
//
//	devtoken [server flags] <user-id>
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/blobvault/internal/flagx"
	"github.com/dmitrijs2005/blobvault/internal/server/auth"
	"github.com/dmitrijs2005/blobvault/internal/server/config"
)

func main() {

	cfg := config.LoadConfig()

	args := flagx.Positional(os.Args[1:], config.ValueFlags)
	if len(args) != 1 {
		log.Fatalf("usage: devtoken [flags] <user-id>")
	}

	token, err := auth.GenerateToken(args[0], []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println(token)

}

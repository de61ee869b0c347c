package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shandysiswandi/gootp/internal/app"
	"github.com/shandysiswandi/gootp/internal/pkg/otpcrypto"
)

func main() {
	genKey := flag.Bool("genkey", false, "print a new base64 encoded AES-256 key for modules.otp.encryption_key and exit")
	flag.Parse()

	if *genKey {
		key, err := otpcrypto.GenerateKey()
		if err != nil {
			slog.Error("failed to generate key", "error", err)
			os.Exit(1)
		}
		fmt.Println(key)
		return
	}

	application := app.New()    // Initialize the application
	wait := application.Start() // Start the application and wait for the termination signal
	<-wait                      // Wait for the application to receive a termination signal
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application.Stop(ctx) // Stop the application gracefully
}

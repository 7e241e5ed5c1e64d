package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"hotel-rate-intel/internal/cli"
)

func main() {
	// .env values feed viper's RATEINTEL_* environment lookups.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cli.Execute()
}

package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"movora/internal/cli"
)

func main() {
	// .env is optional; MOVORA_* variables may also come from the shell.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// Command macrology runs scripted command macros concurrently.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/roach88/macrology/internal/cli"
)

func main() {
	// A .env file in the working directory may set MACROLOGY_* variables.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}
	os.Exit(cli.Execute())
}

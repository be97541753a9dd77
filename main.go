package main

import (
	"os"

	"nigran/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

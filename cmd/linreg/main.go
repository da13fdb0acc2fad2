package main

import (
	"os"

	"github.com/ppiankov/linreg/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}

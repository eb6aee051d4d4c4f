package main

import (
	"os"

	"github.com/platinummonkey/labstock/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}

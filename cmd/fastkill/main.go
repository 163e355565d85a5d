package main

import (
	"os"

	"github.com/fastkill/fastkill/internal/cli"
	"github.com/fastkill/fastkill/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	os.Exit(cli.Execute())
}

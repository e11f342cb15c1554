package main

import (
	"github.com/toolchainworks/relpack/cmd"
	"github.com/toolchainworks/relpack/pkg/logger"
)

var version = "1.0.0"

func main() {
	if err := cmd.Execute(version); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}

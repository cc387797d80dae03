package main

import (
	"os"

	"github.com/anoideaopen/devicereg/core/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Logger().Error(err)
		os.Exit(1)
	}
}

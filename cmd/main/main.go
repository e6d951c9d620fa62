package main

import (
	"fmt"
	"os"

	"github.com/matt-steen/taskboard/pkg/cli"
	"github.com/matt-steen/taskboard/pkg/config"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

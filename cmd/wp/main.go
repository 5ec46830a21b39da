package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/craftwell/workpack/internal/cli"
	"github.com/craftwell/workpack/internal/schema"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		var invalid *schema.InvalidManifestError
		if errors.As(err, &invalid) {
			fmt.Fprintf(os.Stderr, "invalid:%v\n", invalid)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error:%v\n", err)
		os.Exit(1)
	}
}

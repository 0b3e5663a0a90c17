package main

import (
	"os"

	"github.com/llehouerou/riptide/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

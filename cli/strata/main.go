package main

import (
	"github.com/stratadb/strata/cli/strata/cmd"
)

func main() {
	cmd.Execute()
}

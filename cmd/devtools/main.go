package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/jmewes/devtools/internal/cli"
)

func main() {
	cli.Execute()
}

package main

import (
	"os"

	"github.com/marcelocantos/fool/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version, os.Args[1:]))
}

package main

import (
	"os"

	"github.com/thiagokokada/contribgit/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/jian-li1/reddit-llm/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}

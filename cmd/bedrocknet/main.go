package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/luciancaetano/bedrocknet/cmd/bedrocknet/command"
)

func main() {
	if err := command.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bedrocknet: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/aydinberk/sumchat/cmd/cli/ask"
	"github.com/aydinberk/sumchat/cmd/cli/auth"
	"github.com/aydinberk/sumchat/cmd/cli/root"
)

func main() {
	auth.InitAuth(root.GetRoot())
	ask.InitAsk(root.GetRoot())

	// Execute the root Cobra command
	if err := root.GetRoot().Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

// Command nexa is an AI search assistant: it answers questions with a
// ReAct agent that consults web search, Wikipedia and arXiv.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		if exitErr, ok := err.(exitError); ok {
			if !exitErr.silent && exitErr.message != "" {
				fmt.Fprintln(os.Stderr, exitErr.message)
			}
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

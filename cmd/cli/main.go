package main

import "github.com/keurnel/sigforge/cmd/cli/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/nfrund/quorum/cmd/quorum/cmd"

func main() {
	cmd.Execute()
}

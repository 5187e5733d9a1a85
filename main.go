package main

import "github.com/sw33tLie/partscope/cmd"

func main() {
	cmd.Execute()
}

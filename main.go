package main

import "github.com/sw33tLie/itemstate/cmd"

func main() {
	cmd.Execute()
}

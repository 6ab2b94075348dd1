package main

import "fernpost/cmd/fernpost/commands"

func main() {
	commands.Execute()
}

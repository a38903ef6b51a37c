package main

import "github.com/nhle/bugtracker/cmd/bugtracker/commands"

func main() {
	commands.Execute()
}

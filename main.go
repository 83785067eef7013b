package main

import "github.com/Warner231936/Requiem-AIweb/cmd/requiem/commands"

func main() {
	commands.Execute()
}

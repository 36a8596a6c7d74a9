package main

import "github.com/bryanchriswhite/FilterCam/cmd/filtercam/commands"

func main() {
	commands.Execute()
}

package main

import "vcampus/cmd/vcampus/command"

func main() {
	command.Execute()
}

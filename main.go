package main

import "github.com/appointmint/apptbot/cmd"

func main() {
	cmd.Execute()
}

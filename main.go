package main

import "race-timing/cmd"

func main() {
	cmd.Execute()
}

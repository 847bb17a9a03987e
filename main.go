package main

import "davidallendj/fleetauth/cmd"

func main() {
	cmd.Execute()
}

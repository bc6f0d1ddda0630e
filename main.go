package main

import "github.com/simonyos/webpilot/cmd"

func main() {
	cmd.Execute()
}

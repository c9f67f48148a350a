package main

import "github.com/mol-cyberwhip/veteranVR/cmd"

func main() {
	cmd.Execute()
}

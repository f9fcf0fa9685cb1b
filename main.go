package main

import "github.com/devicelab-dev/blockly-runner/pkg/cli"

func main() {
	cli.Execute()
}

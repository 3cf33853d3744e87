package main

import "github.com/atdiar/particlebridge/cmd/shadowctl/cmd"

func main() {
	cmd.Execute()
}

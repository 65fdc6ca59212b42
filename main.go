package main

import "github.com/MyCarrier-DevOps/go-gitgraph/cmd"

func main() {
	cmd.Execute()
}

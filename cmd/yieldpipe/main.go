package main

import "github.com/agriml/yieldpipe/cmd/yieldpipe/cmd"

func main() {
	cmd.Execute()
}

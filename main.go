package main

import "github.com/helmling/bidgap/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/thalesfsp/bags/cmd/bags/cmd"

func main() {
	cmd.Execute()
}

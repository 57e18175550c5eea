package main

import "github.com/fvrstore/fvrstore/cmd"

func main() {
	cmd.Execute()
}

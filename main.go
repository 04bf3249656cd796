package main

import "camdash/cmd"

func main() {
	cmd.Execute()
}

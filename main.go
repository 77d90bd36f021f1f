package main

import "freettes/cmd"

func main() {
	cmd.Execute()
}

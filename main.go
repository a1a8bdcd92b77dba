package main

import "margin/cmd"

func main() {
	cmd.Execute()
}

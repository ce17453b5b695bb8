package main

import "github.com/ngld/match/cmd"

func main() {
	cmd.Execute()
}

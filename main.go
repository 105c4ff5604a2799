package main

import "github.com/brogergvhs/mangacat/cmd"

func main() {
	cmd.Execute()
}

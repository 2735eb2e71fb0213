package main

import "github.com/wetrycode/ripext/cmd"

func main() {
	cmd.Execute()
}

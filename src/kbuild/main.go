package main

import "github.com/rsuntk/kbuild/src/kbuild/internal/cmd"

func main() {
	cmd.Execute()
}

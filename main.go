package main

import "github.com/samogod/tunecfg/cmd"

func main() {
	cmd.Execute()
}

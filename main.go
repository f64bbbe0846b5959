package main

import (
	"github.com/bcdannyboy/pathsim/cmd"
)

func main() {
	cmd.Execute()
}

package main

import (
	"github.com/gradepush/gradepush/cmd"
)

func main() {
	cmd.Execute()
}

package main

import (
	"github.com/BioHazard786/dogfight/cmd"
)

func main() {
	cmd.Execute()
}

package main

import (
	"github.com/MeKo-Tech/scanprep/cmd/scanprep/cmd"
)

func main() {
	cmd.Execute()
}

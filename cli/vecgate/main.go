package main

import (
	"os"

	vecgatecmder "github.com/papercomputeco/vecgate/cmd/vecgate"
)

func main() {
	cmd := vecgatecmder.NewVecgateCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

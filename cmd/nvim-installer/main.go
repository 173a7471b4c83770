package main

import "github.com/oshokin/nvim-installer/cmd/nvim-installer/cmd"

func main() {
	cmd.Execute()
}

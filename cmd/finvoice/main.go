package main

import "github.com/MeKo-Tech/finvoice/cmd/finvoice/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/mcoot/wordbattles/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/keshon/taint-fm/internal/cli"

func main() {
	cli.Execute()
}

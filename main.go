package main

import "github.com/autotrack/cli"

func main() {
	cli.Execute()
}

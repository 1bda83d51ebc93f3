package main

import "github.com/pfrederiksen/econ-calendar/internal/cli"

func main() {
	cli.Execute()
}

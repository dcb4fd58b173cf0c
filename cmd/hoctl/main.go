package main

import "github.com/zelaser/hoapi-go/internal/cli"

func main() {
	cli.Execute()
}

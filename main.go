package main

import "productdash/internal/cli"

func main() {
	cli.Execute()
}

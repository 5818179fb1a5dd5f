package main

import "github.com/vibast-solutions/ms-go-website/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/vibast-solutions/ms-go-shop/cmd"

func main() {
	cmd.Execute()
}

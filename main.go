package main

import "github.com/andresmejia3/facemap/cmd"

func main() {
	cmd.Execute()
}

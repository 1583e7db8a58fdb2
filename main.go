package main

import "github.com/gaurav-prasanna/ordinancepipe/cmd"

func main() {
	cmd.Execute()
}

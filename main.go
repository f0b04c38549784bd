package main

import "github.com/kebairia/pgchain/cmd"

func main() {
	cmd.Execute()
}

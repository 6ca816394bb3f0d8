package main

import "github.com/sgdevreal/stimmo/cmd"

func main() {
	cmd.Execute()
}

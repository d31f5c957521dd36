package main

import "github.com/oshokin/relsync/cmd/relsync/cmd"

func main() {
	cmd.Execute()
}

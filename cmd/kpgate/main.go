package main

import "github.com/kpgate/kpgate/cmd/kpgate/cmd"

func main() {
	cmd.Execute()
}

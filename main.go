package main

import "github.com/maxvaer/webprobe/cmd"

func main() {
	cmd.Execute()
}

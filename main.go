package main

import "segment-sync/cmd"

func main() {
	cmd.Execute()
}

package main

import "media-reconciler/cmd"

func main() {
	cmd.Execute()
}

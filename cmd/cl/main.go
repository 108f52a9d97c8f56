package main

import "caseline/cmd/cl/root"

func main() {
	root.Execute()
}

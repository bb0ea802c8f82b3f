package main

import "github.com/cerebricks/mailagent/cmd"

func main() {
	cmd.Execute()
}

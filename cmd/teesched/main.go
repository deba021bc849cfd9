package main

import "github.com/example/teetime-scheduler/cmd"

func main() {
	cmd.Execute()
}

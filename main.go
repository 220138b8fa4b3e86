package main

import (
	"story-cinema-pipeline/cmd"
)

func main() {
	cmd.Execute()
}

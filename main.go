package main

import (
	"log"

	"sonata/cmd"
)

func main() {
	cmd.Execute()
	// Cobra calls os.Exit itself on failure; reaching this line means the
	// command completed (or a long-running server started without error).
	log.Println("Sonata command execution finished or server started.")
}

package main

import (
	"github.com/driftwatch/driftwatch/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// Local .env keeps MAILJET_* and friends out of the shell history when
	// reproducing CI invocations.
	_ = godotenv.Load()

	cmd.Execute()
}

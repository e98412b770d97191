package main

import (
	"log"

	"github.com/SirCraft007/grade-api/app"
)

func main() {
	// setup and run the reconciliation worker
	if err := app.SetupAndRunWorker(); err != nil {
		log.Fatal(err)
	}
}

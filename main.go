package main

import (
	"log"

	"meeting-scheduler/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}

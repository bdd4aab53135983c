package main

import (
	"log"

	"phonebuddy/internal/agent"
)

func main() {
	if err := agent.Run(); err != nil {
		log.Fatalf("Agent failed: %v", err)
	}
}

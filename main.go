package main

import "github.com/jghoshh/ecotrack/backend"

func main() {
	backend.RunBackend()
}

package main

import (
	"github.com/nfrund/quorum/internal/server"
)

func main() {
	s := server.New()
	s.RegisterRoutes()
	s.Start()
}

package main

import (
	"context"
	"os"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	a := newApp(os.Stdout, os.Stderr)
	os.Exit(a.run(context.Background(), os.Args[1:]))
}

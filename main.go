package main

import (
	"os"

	"github.com/vercel/turborepo-cache/cmd/turbo"
)

func main() {
	os.Exit(turbo.Run())
}

package main

import (
	"github.com/joho/godotenv"

	"github.com/hongminglow/record-archive/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}

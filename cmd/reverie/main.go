package main

import (
	"reverie/cmd/cmd"
	"reverie/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}

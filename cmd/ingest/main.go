package main

import "github.com/JonMunkholm/ingest/internal/cli"

func main() {
	cli.Execute()
}

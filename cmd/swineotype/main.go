// cmd/swineotype/main.go
package main

import (
	"swineotype/internal/app"
	"swineotype/internal/appshell"
)

func main() { appshell.Main(app.RunContext) }

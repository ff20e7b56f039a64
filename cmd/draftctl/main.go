package main

import (
	"context"

	"github.com/fortuna/draftlens/cmd/draftctl/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}

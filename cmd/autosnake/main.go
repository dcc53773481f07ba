package main

import (
	"math/rand"
	"time"

	"github.com/battlesnakeio/autosnake/cmd/autosnake/commands"
)

func main() {
	rand.Seed(time.Now().UnixNano())
	commands.Execute()
}

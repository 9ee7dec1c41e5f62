package main

import (
	"log"
	"os"

	"github.com/viant/mcpchat"
)

func main() {
	if err := mcpchat.Run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

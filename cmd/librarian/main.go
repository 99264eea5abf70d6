// Package main is the entry point for the librarian service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/librarian/cmd/librarian/app"
)

func main() {
	app.NewApp().Run()
}

// Command auth runs the Voluntree authentication service: credential
// verification, email one-time codes, and cookie-based session tokens.
package main

import (
	"fmt"
	"os"

	"github.com/voluntree/voluntree/internal/auth/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "auth:", err)
		os.Exit(1)
	}
}

func run() error {
	application, err := app.New(app.LoadConfig())
	if err != nil {
		return err
	}
	return application.Run()
}

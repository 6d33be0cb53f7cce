package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/mamaar/constprop/internal/cli"
	"github.com/mamaar/constprop/internal/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := cli.NewApp(os.Stdin, os.Stdout, os.Stderr)
	app.Root.SetContext(ctx)
	commands.Register(app)
	code := app.Execute(os.Args[1:])
	stop()
	os.Exit(code)
}

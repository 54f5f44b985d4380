package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"

	"dutyplan.onebusaway.org/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := commands.New().ExecuteContext(ctx)
	stop()

	if err != nil && !errors.Is(err, commands.ErrWarnings) {
		_, _ = fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
	}
	os.Exit(commands.ExitCode(err))
}

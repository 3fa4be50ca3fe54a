package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sontara444/taskmanager-client/handlers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := handlers.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

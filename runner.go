package mcpchat

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
)

// Run parses args, starts the service and blocks until SIGINT or SIGTERM.
func Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	options, err := ParseOptions(ctx, args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}
	service, err := New(ctx, options)
	if err != nil {
		return err
	}
	return service.ListenAndServe(ctx)
}

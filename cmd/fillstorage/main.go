package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"fillstorage/pkg/filler"
	"fillstorage/pkg/log"
	"fillstorage/pkg/models"
	"fillstorage/pkg/runner"
	"fillstorage/pkg/server"
)

const (
	targetDirPerm = 0750
	exitUsage     = 2
)

//go:embed VERSION
var Version string

type config struct {
	dir     string
	port    string
	debug   bool
	command string
}

func parseFlags(args []string, output io.Writer) (*config, error) {
	flags := flag.NewFlagSet("fillstorage", flag.ContinueOnError)
	flags.SetOutput(output)
	flags.Usage = func() {
		fmt.Fprintf(output, "Usage: fillstorage [flags] <free|fill|reset|list|serve>\n")
		flags.PrintDefaults()
	}

	cfg := &config{}
	flags.StringVar(&cfg.dir, "dir", "build/dummy", "Directory on the volume to fill")
	flags.StringVar(&cfg.port, "port", "8080", "Server port for the serve command")
	flags.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return nil, errors.New("expected exactly one command")
	}
	cfg.command = flags.Arg(0)
	return cfg, nil
}

func main() {
	_ = log.Logger

	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(exitUsage)
	}

	if cfg.debug {
		log.SetDebugMode()
	}

	if err := os.MkdirAll(cfg.dir, targetDirPerm); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.dir).Msg("Failed to create target directory")
	}

	jobs := runner.New(filler.New(cfg.dir))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, jobs, os.Stdout); err != nil {
		log.Error().Err(err).Str("command", cfg.command).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config, jobs *runner.Runner, out io.Writer) error {
	switch cfg.command {
	case "free":
		printFree(out, jobs)
		return nil

	case "fill":
		if err := jobs.StartFill(ctx); err != nil {
			return err
		}
		status := jobs.Wait()
		switch {
		case status.Error != "":
			return errors.New(status.Error)
		case status.State == models.JobCancelled:
			fmt.Fprintln(out, "Cancelled")
		case status.State == models.JobStopped:
			fmt.Fprintln(out, "Stopped before disk full")
		}
		printFree(out, jobs)
		return nil

	case "reset":
		_, deleted, err := jobs.RequestReset()
		fmt.Fprintf(out, "Deleted %d dummy files\n", deleted)
		printFree(out, jobs)
		return err

	case "list":
		list, err := jobs.Files()
		if err != nil {
			return err
		}
		for _, file := range list.Files {
			fmt.Fprintf(out, "%s\t%s\n", file.Path, humanize.IBytes(uint64(file.Size))) //nolint:gosec // sizes are non-negative
		}
		fmt.Fprintf(out, "%d files, %s\n", len(list.Files), humanize.IBytes(uint64(list.TotalBytes))) //nolint:gosec // sizes are non-negative
		return nil

	case "serve":
		srv := server.NewFillServer(strings.TrimSpace(Version), jobs)
		return srv.Start(ctx, ":"+cfg.port)

	default:
		return fmt.Errorf("unknown command %q", cfg.command)
	}
}

func printFree(out io.Writer, jobs *runner.Runner) {
	free := jobs.FreeSpace()
	fmt.Fprintf(out, "%s free in %s\n", free.FreeHuman, free.Dir)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/handiism/myzuka-downloader/internal/config"
	"github.com/handiism/myzuka-downloader/internal/download"
	"github.com/handiism/myzuka-downloader/internal/output"
)

var version = "dev"

type options struct {
	configPath     string
	path           string
	socks          string
	timeout        timeoutValue
	nbConn         int
	debug          int
	maxAttempts    int
	playlist       bool
	playlistFormat string
	thumbnail      bool
	urlList        string
	dryRun         bool
}

func newRootCmd(opts *options) *cobra.Command {
	defaults := config.DefaultSettings()

	cmd := &cobra.Command{
		Use:   "myzuka-dl [flags] URL...",
		Short: "Download albums or a whole artist discography from myzuka.club",
		Long: `Download albums or a whole artist discography from myzuka.club.

URL must contain "/Album/" or "/Artist/". Interrupted downloads are resumed
on the next run: files already complete are skipped, partial ones continue
where they stopped.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "myzuka.yaml", "Path to YAML config file")
	flags.StringVarP(&opts.path, "path", "p", defaults.DownloadsPath, "Base directory in which album(s) will be downloaded")
	flags.StringVarP(&opts.socks, "socks", "s", "", `Socks proxy: "address:port" without "http://"`)
	opts.timeout = timeoutValue(defaults.Timeout)
	flags.VarP(&opts.timeout, "timeout", "t", "Timeout for HTTP connections in seconds, or a duration (eg. 10, 10s, 1m)")
	flags.IntVarP(&opts.nbConn, "nb-conn", "n", defaults.Concurrency, "Number of simultaneous downloads (max 3 for myzuka.club)")
	flags.IntVarP(&opts.debug, "debug", "d", defaults.Debug, "Debug verbosity: 0, 1, 2")
	flags.IntVar(&opts.maxAttempts, "max-attempts", defaults.MaxAttempts, "Attempts per file before giving up (0 retries forever)")
	flags.BoolVar(&opts.playlist, "playlist", defaults.CreatePlaylist, "Create a playlist for each album")
	flags.StringVar(&opts.playlistFormat, "playlist-format", defaults.PlaylistFormat, "Playlist format: m3u, pls, wpl, zpl")
	flags.BoolVar(&opts.thumbnail, "thumbnail", defaults.CreateThumbnail, "Write a resized copy of the cover")
	flags.StringVarP(&opts.urlList, "urllist", "l", "", "Path to YAML file containing URLs")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Parse URLs without downloading")

	return cmd
}

// timeoutValue is a duration flag that also takes a bare number of
// seconds, so "-t 10" keeps working.
type timeoutValue time.Duration

func (v *timeoutValue) String() string { return time.Duration(*v).String() }

func (v *timeoutValue) Set(s string) error {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		*v = timeoutValue(time.Duration(n * float64(time.Second)))
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: use seconds or a duration like 10s", s)
	}
	*v = timeoutValue(d)
	return nil
}

func (v *timeoutValue) Type() string { return "duration" }

// execute runs the command and returns the process exit code.
func execute() int {
	// a missing .env is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(&options{}).ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		fmt.Println()
		output.PrintError("** Program interrupted by user, exiting! **")
		return 130
	default:
		output.PrintError(fmt.Sprintf("** Error: %v **", err))
		return 1
	}
}

// applyFlags overrides settings with the flags set on the command line.
func applyFlags(cmd *cobra.Command, opts *options, s *config.Settings) {
	flags := cmd.Flags()
	if flags.Changed("path") {
		s.DownloadsPath = opts.path
	}
	if flags.Changed("socks") {
		s.SocksProxy = opts.socks
	}
	if flags.Changed("timeout") {
		s.Timeout = time.Duration(opts.timeout)
	}
	if flags.Changed("nb-conn") {
		s.Concurrency = opts.nbConn
	}
	if flags.Changed("debug") {
		s.Debug = opts.debug
	}
	if flags.Changed("max-attempts") {
		s.MaxAttempts = opts.maxAttempts
	}
	if flags.Changed("playlist") {
		s.CreatePlaylist = opts.playlist
	}
	if flags.Changed("playlist-format") {
		s.PlaylistFormat = opts.playlistFormat
	}
	if flags.Changed("thumbnail") {
		s.CreateThumbnail = opts.thumbnail
	}
}

func inputURLs(opts *options, args []string) ([]string, error) {
	switch {
	case len(args) == 0 && opts.urlList == "":
		return nil, errors.New("no URL or URL list provided")
	case len(args) > 0 && opts.urlList != "":
		return nil, errors.New("cannot specify url argument and --urllist together, choose one")
	case opts.urlList != "":
		return readURLList(opts.urlList)
	}
	return args, nil
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	ctx := cmd.Context()

	settings, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, settings)
	if err := settings.Validate(); err != nil {
		return err
	}
	output.InitLogger(settings.Debug)

	urls, err := inputURLs(opts, args)
	if err != nil {
		return err
	}

	manager, err := download.NewManager(settings, printEvent(settings.Debug > 0))
	if err != nil {
		return err
	}

	output.PrintInfo(fmt.Sprintf("** We will try to use %d simultaneous downloads, progress will be shown\n"+
		"   after each completed file but not necessarily in album's order. **", settings.Concurrency))

	if err := manager.Initialize(ctx, strings.Join(urls, "\n")); err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Println()
		output.PrintHeader("[Dry run - not downloading]")
		for _, name := range manager.GetAlbumNames() {
			fmt.Println("  " + name)
		}
		return nil
	}

	if err := manager.StartDownloads(ctx); err != nil {
		return err
	}

	received, _, filesReceived, filesTotal := manager.GetProgress()
	fmt.Println()
	output.PrintHeader(fmt.Sprintf("Downloaded %d/%d files (%.2f MB)", filesReceived, filesTotal, output.ToMB(received)))
	return nil
}

func printEvent(verbose bool) func(download.ProgressEvent) {
	return func(event download.ProgressEvent) {
		switch event.Level {
		case download.LevelVerbose:
			if verbose {
				output.PrintDim(event.Message)
			}
		case download.LevelError:
			output.PrintError(event.Message)
		case download.LevelWarning:
			output.PrintWarning(event.Message)
		case download.LevelSuccess:
			output.PrintSuccess(event.Message)
		default:
			fmt.Println(event.Message)
		}
	}
}

// Package commands implements the civiz command line client. Without a
// token it runs the guest flow against a local badger store; with one it
// acts as the signed-in account.
package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/benvon/civiz/internal/client"
	"github.com/benvon/civiz/internal/guest"
	"github.com/benvon/civiz/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	envAPIURL  = "CIVIZ_API_URL"
	envToken   = "CIVIZ_TOKEN"
	envDataDir = "CIVIZ_DATA_DIR"

	defaultAPIURL = "http://localhost:8080"
)

// app holds the flags and lazily opened resources shared by commands
type app struct {
	apiURL  string
	token   string
	dataDir string
	verbose bool

	out     io.Writer
	log     *zap.Logger
	storage *guest.BadgerStorage
	store   *guest.Store
}

// NewRootCmd builds the civiz command tree
func NewRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	root := &cobra.Command{
		Use:           "civiz",
		Short:         "Imagine a better San Francisco",
		Long:          "Turn short civic visions into images. Try three a day as a guest, then sign up to keep them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.NewCLILogger(a.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.log = log
			a.out = cmd.OutOrStdout()
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", envOr(envAPIURL, defaultAPIURL), "civiz API URL ($"+envAPIURL+")")
	root.PersistentFlags().StringVar(&a.token, "token", os.Getenv(envToken), "access token for a signed-in account ($"+envToken+")")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", envOr(envDataDir, defaultDataDir()), "guest data directory ($"+envDataDir+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newImagineCmd(a),
		newStatusCmd(a),
		newVisionsCmd(a),
		newLikeCmd(a),
		newMigrateCmd(a),
		newResetCmd(a),
		newConversionCmd(a),
	)
	return root
}

// guestStore opens the local guest store on first use
func (a *app) guestStore() (*guest.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if err := os.MkdirAll(a.dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	storage, err := guest.OpenBadgerStorage(a.dataDir)
	if err != nil {
		return nil, err
	}
	a.storage = storage
	a.store = guest.NewStore(storage, guest.WithLogger(a.log))
	return a.store, nil
}

func (a *app) client() (*client.Client, error) {
	return client.New(a.apiURL, a.token)
}

func (a *app) close() error {
	if a.log != nil {
		_ = logger.Sync(a.log)
	}
	if a.storage != nil {
		return a.storage.Close()
	}
	return nil
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "civiz")
	}
	return ".civiz"
}

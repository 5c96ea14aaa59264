package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "smallrss",
		Short: "Keep RSS feeds, articles and movie metadata in a local SQLite store",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(addCmd())
	root.AddCommand(removeCmd())
	root.AddCommand(listCmd())
	root.AddCommand(refreshCmd())
	root.AddCommand(lookupCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func addCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Subscribe to a feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(args[0], title)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "display title (default: the feed's own title)")
	return cmd
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove URL",
		Short: "Unsubscribe from a feed and drop its articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(args[0])
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show subscribed feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	}
}

func refreshCmd() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch all feeds once and store their articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(replace)
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "replace stored articles instead of merging")
	return cmd
}

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup TITLE",
		Short: "Normalize a release title and query the metadata provider",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(args)
		},
	}
}

func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import legacy JSON files into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory holding the legacy files (default: from config)")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with periodic refresh and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

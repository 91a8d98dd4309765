package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mark3labs/latch/internal/git"
	"github.com/mark3labs/latch/internal/mcpserver"
	"github.com/mark3labs/latch/internal/settings"
)

var mcpFlags struct {
	addr string
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve hook tools to coding agents over MCP",
	Long: `Mcp starts a streamable-HTTP MCP server scoped to this repository.
Agents get three tools: run_hooks to check files they touched,
list_hooks to see what the pipeline enforces, and validate_config to
check a pipeline document they edited. Runs triggered this way never
stash the working tree.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpFlags.addr, "addr", "", "Listen address (default: a random port on localhost)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	s, err := settings.Load()
	if err != nil {
		return err
	}
	configureLogger(s)

	root, err := git.Root(".")
	if err != nil {
		return fmt.Errorf("not inside a git repository (%w)", err)
	}

	srv := mcpserver.New(root, s.CacheDir, s.Jobs)
	if _, err := srv.Start(mcpFlags.addr); err != nil {
		return err
	}
	fmt.Printf("MCP server for %s at %s\n", root, srv.URL())
	fmt.Println("Press ctrl-c to stop.")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Println("\nShutting down.")
	return srv.Stop()
}

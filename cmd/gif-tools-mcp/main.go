package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/gif-tools-mcp/internal/config"
	"github.com/ironsheep/gif-tools-mcp/internal/observability"
	"github.com/ironsheep/gif-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const appName = "gif-tools-mcp"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("%s %s\n", appName, Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		case "encode":
			logger := observability.InitLogger(appName)
			if err := runEncode(os.Args[2:], logger); err != nil {
				fmt.Fprintf(os.Stderr, "encode: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	// Logging goes to stderr (stdout is for MCP protocol)
	logger := observability.InitLogger(appName)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Strs("profiles", cfg.Profiles()).
		Msg("GIF MCP server starting")

	srv := server.NewWithConfig(cfg, logger)
	if err := srv.Run(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func printUsage() {
	fmt.Printf("%s - MCP server for encoding animated GIFs\n", appName)
	fmt.Println()
	fmt.Printf("Usage: %s [options]\n", appName)
	fmt.Printf("       %s encode [-config file.toml] [-profile name] -o out.gif frame...\n", appName)
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Encode flags:")
	fmt.Println("  -o path          Output file (.gz and .zst are compressed)")
	fmt.Println("  -config path     TOML profile file (default $GIF_MCP_CONFIG)")
	fmt.Println("  -profile name    Profile to start from")
	fmt.Println("  -delay, -repeat, -quality, -colors, -background, -transparent")
	fmt.Println("                   Override the profile")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=debug    Log level (debug, info, warn, error)\n", observability.LevelEnv)
	fmt.Printf("  %s=path        Encoder profile file\n", config.PathEnv)
	fmt.Println()
	fmt.Println("Without a subcommand the server communicates via MCP protocol over")
	fmt.Println("stdin/stdout. Configure it in your MCP client.")
}

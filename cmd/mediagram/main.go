package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/masterdcs/mediagram/internal/config"
	"github.com/masterdcs/mediagram/internal/gateway"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mediagram",
	Short: "mediagram - chat-driven media downloader",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot gateway",
	RunE:  runGateway,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and download directory",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mediagram status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(runCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("bot token not set. Run 'mediagram onboard' or set MEDIAGRAM_BOT_TOKEN / BOT_TOKEN")
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.Download.Dir, 0755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	fmt.Printf("Download dir ready: %s\n", cfg.Download.Dir)

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your bot token\n", cfgPath)
	fmt.Println("  2. Or set MEDIAGRAM_BOT_TOKEN environment variable")
	fmt.Println("  3. Run 'mediagram run' to start the bot")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Download dir: %s\n", cfg.Download.Dir)
	fmt.Printf("yt-dlp: %s\n", cfg.Engine.YtDlpPath)

	if cfg.Telegram.Token != "" && len(cfg.Telegram.Token) > 8 {
		masked := cfg.Telegram.Token[:4] + "..." + cfg.Telegram.Token[len(cfg.Telegram.Token)-4:]
		fmt.Printf("Bot token: %s\n", masked)
	} else if cfg.Telegram.Token != "" {
		fmt.Println("Bot token: set")
	} else {
		fmt.Println("Bot token: not set")
	}

	files, bytes := storageUsage(cfg.Download.Dir)
	fmt.Printf("Storage: %d file(s), %s\n", files, humanize.Bytes(uint64(bytes)))

	return nil
}

func storageUsage(dir string) (int, int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	var files int
	var bytes int64
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files++
		bytes += info.Size()
	}
	return files, bytes
}

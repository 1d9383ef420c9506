// Package main provides the entry point for the tableread CLI
// application.
package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/tableread/tableread/player"
	"github.com/tableread/tableread/player/media"
	"github.com/tableread/tableread/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	backendURL string
	autoplay   bool
	mouse      bool

	rootCmd = &cobra.Command{
		Use:   "tableread [PROJECT]",
		Short: "Cast voices and audition generated audiobooks, right from your terminal",
		Long: paragraph(
			fmt.Sprintf("\nBrowse screenplay projects, %s, and listen to the results without leaving your terminal.", keyword("cast voices")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	backendURL = viper.GetString("backend")
	mouse = viper.GetBool("mouse")
	autoplay = viper.GetBool("autoplay")

	u, err := url.Parse(backendURL)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s is not a supported backend protocol", u.Scheme)
	}

	// Flags beat the config file.
	if cmd.Flags().Changed("backend") {
		backendURL, _ = cmd.Flags().GetString("backend")
	}
	if cmd.Flags().Changed("autoplay") {
		autoplay, _ = cmd.Flags().GetBool("autoplay")
	}
	return nil
}

func execute(_ *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("tableread needs an interactive terminal")
	}

	project := ""
	if len(args) == 1 {
		project = args[0]
	}
	return runTUI(project)
}

func runTUI(project string) error {
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	cfg.BackendURL = backendURL
	cfg.Autoplay = autoplay
	cfg.EnableMouse = mouse
	cfg.Project = project

	svc := player.InitDefault(media.NewHTTPResource(), player.DefaultConfig())
	defer svc.Destroy()

	if _, err := ui.NewProgram(cfg).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&backendURL, "backend", "b", "http://localhost:8000", "generation backend base URL")
	rootCmd.Flags().BoolVar(&autoplay, "autoplay", true, "play finished generations automatically")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")

	_ = viper.BindPFlag("backend", rootCmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("autoplay", rootCmd.Flags().Lookup("autoplay"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	viper.SetDefault("backend", "http://localhost:8000")
	viper.SetDefault("autoplay", true)
	viper.SetDefault("mouse", false)

	rootCmd.AddCommand(configCmd, uploadCmd, reviewCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "tableread")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "tableread")}, dirs...)
	}

	if c := os.Getenv("TABLEREAD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("tableread")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("tableread")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "tableread.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}

package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pcprep/pcprep-api/internal/config"
	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/seed"
)

const defaultConfigPath = "./cmd/app/config.yml"

type rootOptions struct {
	ConfigPath string
}

// NewRootCommand builds the pcprep command line. Without a subcommand it
// serves the API.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pcprep",
		Short:         "Civil protection kit preparation API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Start(opts.ConfigPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath, "path to the YAML config file")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))

	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Start(opts.ConfigPath)
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Migrate(opts.ConfigPath)
		},
	}
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert initial data",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "admin",
		Short: "Create the administrator account from the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("failed to initialize config -> %w", err)
			}
			if conf.Admin.Password == "" {
				return fmt.Errorf("admin.password (ADMIN_PASSWORD) is not set")
			}

			postgresDB, err := bootstrap(conf)
			if err != nil {
				return err
			}

			return ensureAdmin(cmd.Context(), conf, newUserService(postgresDB))
		},
	})

	var file string
	template := &cobra.Command{
		Use:   "template",
		Short: "Create a stock root from a YAML template",
		Long: `Create a stock root from a YAML template.

Without --file the built-in first-aid bag template is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return seedTemplate(cmd.Context(), opts.ConfigPath, file, cmd)
		},
	}
	template.Flags().StringVarP(&file, "file", "f", "", "template file")
	cmd.AddCommand(template)

	return cmd
}

func seedTemplate(ctx context.Context, configPath, file string, cmd *cobra.Command) error {
	tpl := seed.Default()
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("os.Open -> %w", err)
		}
		defer f.Close()

		if tpl, err = seed.Parse(f); err != nil {
			return fmt.Errorf("seed.Parse -> %w", err)
		}
	}

	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	postgresDB, err := bootstrap(conf)
	if err != nil {
		return err
	}

	root, err := newStockService(postgresDB).ImportTemplate(ctx, domain.User{Username: "cli"}, tpl)
	if err != nil {
		return fmt.Errorf("failed to import template -> %w", err)
	}

	zap.L().Info("template imported", zap.Uint("root_id", root.ID), zap.String("name", root.Name))
	fmt.Fprintf(cmd.OutOrStdout(), "created stock root #%d %s\n", root.ID, root.Name)

	return nil
}

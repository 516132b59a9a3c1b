package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-polish/internal/config"
	"github.com/alnah/go-polish/internal/format"
	"github.com/alnah/go-polish/internal/model"
	"github.com/alnah/go-polish/internal/template"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/polish/config.yaml (or under
$XDG_CONFIG_HOME when set). Flags override environment variables, which
override the config file.

Run without a subcommand to show the effective configuration.`,
		Example: `  polish config
  polish config set model granite-3.0-8b-instruct
  polish config set template technical
  polish config set output_dir ~/Documents/polished`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(env)
		},
	}

	cmd.AddCommand(configShowCmd(env))
	cmd.AddCommand(configSetCmd(env))

	return cmd
}

// configShowCmd creates the "config show" subcommand.
func configShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show every configuration key with its effective value.

Values reflect the config file, environment overrides, and defaults for
anything unset.`,
		Example: `  polish config show`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(env)
		},
	}
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value and write it to the config file.

Keys use their YAML path; run "polish config show" for the full list.
Names (provider, model, template, format) are validated before saving,
and output_dir is created if it doesn't exist.`,
		Example: `  polish config set provider openai
  polish config set model gpt-4o-mini
  polish config set rate.max_calls_per_window 10
  polish config set output_dir ~/Documents/polished`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// runConfigShow handles "config show" and the bare "config" command.
func runConfigShow(env *Env) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	p, err := config.Path()
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stdout, "# %s\n", p)
	for _, key := range config.Keys() {
		value, err := cfg.Value(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "%s = %s\n", key, value)
	}
	return nil
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	// The raw file, not the effective config: saving must not bake
	// current defaults or environment overrides into unset keys.
	cfg, err := config.LoadFile()
	if err != nil {
		return err
	}

	// Key-specific validation so a typo is caught here, not at process time.
	switch key {
	case "provider":
		if _, err := ParseProvider(value); err != nil {
			return err
		}
	case "model":
		if _, err := model.ParseName(value); err != nil {
			return err
		}
	case "template":
		if _, err := template.ParseName(value); err != nil {
			return err
		}
	case "format":
		if _, err := format.ParseMode(value); err != nil {
			return err
		}
	case "output_dir":
		expanded := config.ExpandPath(value)
		if err := config.ValidOutputDir(expanded); err != nil {
			return fmt.Errorf("invalid output_dir: %w", err)
		}
		// Store the expanded path for consistency.
		value = expanded
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eringen/spacetraveling"
)

type options struct {
	cfgFile   string
	v         *viper.Viper
	cfg       spacetraveling.SiteConfig
	staticDir string
}

func newRootCmd() *cobra.Command {
	o := &options{v: viper.New()}

	root := &cobra.Command{
		Use:   "spacetraveling",
		Short: "A blog served from the Prismic CMS",
		Long: `spacetraveling renders a blog whose posts live in a Prismic repository.
It serves a listing page that grows one post at a time and post pages that are
generated ahead of time or on their first request.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.initializeConfig(cmd)
		},
	}
	root.PersistentFlags().StringVar(&o.cfgFile, "config", "", "config file (default is ./config.yaml)")

	root.AddCommand(
		newServeCmd(o),
		newBuildCmd(o),
		newPostsCmd(o),
		newVersionCmd(),
	)
	return root
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "spacetraveling")
	v.SetDefault("url", "http://localhost:3000")
	v.SetDefault("addr", ":3000")
	v.SetDefault("database_path", "data/pages.db")
	v.SetDefault("output_dir", "out")
	v.SetDefault("static_dir", "public")
	v.SetDefault("page_size", 1)
	v.SetDefault("eager_slugs", spacetraveling.DefaultEagerSlugs)
	v.SetDefault("locale", "pt-BR")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("revalidate", "1h")
	v.SetDefault("fallback_wait", "2s")
	v.SetDefault("fetch_timeout", "10s")
	v.SetDefault("load_more_limit", 60)
}

func (o *options) initializeConfig(cmd *cobra.Command) error {
	v := o.v
	setDefaults(v)

	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SPACETRAVELING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || o.cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		slog.DebugContext(cmd.Context(), "no config file, using defaults and environment")
	} else {
		slog.DebugContext(cmd.Context(), "using config file", "path", v.ConfigFileUsed())
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	o.cfg = configFromViper(v)
	o.staticDir = v.GetString("static_dir")
	return nil
}

// configFromViper maps config keys onto SiteConfig. List values given as
// one comma or space separated string (the usual shape of an environment
// variable) are split.
func configFromViper(v *viper.Viper) spacetraveling.SiteConfig {
	return spacetraveling.SiteConfig{
		Name:               v.GetString("name"),
		URL:                v.GetString("url"),
		Description:        v.GetString("description"),
		Author:             v.GetString("author"),
		Addr:               v.GetString("addr"),
		DatabasePath:       v.GetString("database_path"),
		OutputDir:          v.GetString("output_dir"),
		PrismicEndpoint:    v.GetString("prismic.endpoint"),
		PrismicAccessToken: v.GetString("prismic.access_token"),
		PageSize:           v.GetInt("page_size"),
		EagerSlugs:         splitList(v.GetStringSlice("eager_slugs")),
		Locale:             v.GetString("locale"),
		TimeZone:           v.GetString("timezone"),
		Revalidate:         v.GetDuration("revalidate"),
		FallbackWait:       v.GetDuration("fallback_wait"),
		FetchTimeout:       v.GetDuration("fetch_timeout"),
		LoadMoreLimit:      v.GetInt("load_more_limit"),
		AdminPassword:      v.GetString("admin_password"),
		SessionSecret:      v.GetString("session_secret"),
		CookieSecure:       v.GetBool("cookie_secure"),
	}
}

func splitList(vals []string) []string {
	out := []string{}
	for _, v := range vals {
		out = append(out, spacetraveling.FilterEmpty(strings.Split(v, ","))...)
	}
	return out
}

func (o *options) newApp() *spacetraveling.App {
	return spacetraveling.New(o.cfg, spacetraveling.DefaultViews(),
		spacetraveling.WithStaticDir(o.staticDir),
		spacetraveling.WithLogger(slog.Default()),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the spacetraveling version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "spacetraveling %s\n", version)
		},
	}
}

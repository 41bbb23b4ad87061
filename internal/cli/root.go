package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Alsairy/Masark-Engine-sub003/internal/logger"
	"github.com/Alsairy/Masark-Engine-sub003/internal/service"
)

const appName = "masarkctl"

// Tables holds the scoring and ranking tables read from the config file.
type Tables struct {
	Weights         service.WeightTable       `mapstructure:"weights"`
	Clarity         service.ClarityThresholds `mapstructure:"clarity"`
	BorderlineShare float64                   `mapstructure:"borderline-share"`
	Boosts          service.BoostTable        `mapstructure:"boosts"`
	Threshold       float64                   `mapstructure:"threshold"`
	Limit           int                       `mapstructure:"limit"`
}

func (t Tables) resolver() service.ResolverConfig {
	return service.ResolverConfig{Weights: t.Weights, Clarity: t.Clarity, BorderlineShare: t.BorderlineShare}
}

type app struct {
	v         *viper.Viper
	cfgFile   string
	dialCache cacheDialer
}

// NewRootCommand builds the masarkctl command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{v: viper.New(), dialCache: dialRedisCache})
}

func newRootCommand(a *app) *cobra.Command {
	setTableDefaults(a.v)

	root := &cobra.Command{
		Use:           appName,
		Short:         "masarkctl scores answer fixtures and ranks careers offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "a config file with scoring tables (default is masarkctl.yaml in current directory)")
	root.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	root.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	root.PersistentFlags().StringP("output", "o", "json", "result format: json or yaml")

	a.v.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))
	a.v.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	a.v.BindPFlag("output", root.PersistentFlags().Lookup("output"))

	root.AddCommand(a.scoreCommand(), a.matchCommand(), a.schemaCommand(), a.migrateCommand(), a.cacheCommand())
	return root
}

func setTableDefaults(v *viper.Viper) {
	w := service.DefaultWeightTable()
	v.SetDefault("weights.weak", w.Weak)
	v.SetDefault("weights.moderate", w.Moderate)
	v.SetDefault("weights.strong", w.Strong)

	c := service.DefaultClarityThresholds()
	v.SetDefault("clarity.slight", c.Slight)
	v.SetDefault("clarity.moderate", c.Moderate)
	v.SetDefault("clarity.clear", c.Clear)
	v.SetDefault("borderline-share", service.DefaultResolverConfig().BorderlineShare)

	b := service.DefaultBoostTable()
	v.SetDefault("boosts.general", b.General)
	v.SetDefault("boosts.gifted", b.Gifted)
	v.SetDefault("threshold", service.DefaultMatchThreshold)
	v.SetDefault("limit", service.DefaultMatchLimit)
}

// initConfig reads the config file when one is given or found; defaults cover
// every table otherwise.
func (a *app) initConfig() error {
	a.v.SetEnvPrefix("MASARK")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", a.cfgFile, err)
		}
		return nil
	}

	a.v.AddConfigPath(".")
	a.v.SetConfigName(appName)
	a.v.SetConfigType("yaml")
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func (a *app) tables() (Tables, error) {
	var t Tables
	if err := a.v.Unmarshal(&t); err != nil {
		return Tables{}, fmt.Errorf("decoding tables: %w", err)
	}
	if err := t.resolver().Validate(); err != nil {
		return Tables{}, err
	}
	if err := t.Boosts.Validate(); err != nil {
		return Tables{}, err
	}
	return t, nil
}

func (a *app) newLogger() (*zap.Logger, error) {
	return logger.New(a.v.GetBool("json"), a.v.GetBool("debug"))
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Alsairy/Masark-Engine-sub003/internal/config"
	"github.com/Alsairy/Masark-Engine-sub003/internal/db"
	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
	"github.com/Alsairy/Masark-Engine-sub003/internal/service"
)

// scoreReport is what `score` prints.
type scoreReport struct {
	TypeCode    string                       `json:"type_code,omitempty" yaml:"type_code,omitempty"`
	Dimensions  []domain.DimensionScore      `json:"dimensions" yaml:"dimensions"`
	Scores      map[domain.Dimension]int     `json:"scores,omitempty" yaml:"scores,omitempty"`
	Confidence  map[domain.Dimension]float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Borderline  []domain.Dimension           `json:"borderline,omitempty" yaml:"borderline,omitempty"`
	PendingTies []domain.Dimension           `json:"pending_ties,omitempty" yaml:"pending_ties,omitempty"`
	Missing     []string                     `json:"missing_answers,omitempty" yaml:"missing_answers,omitempty"`
	Validation  *service.ValidationReport    `json:"validation,omitempty" yaml:"validation,omitempty"`
	Stability   *service.StabilityReport     `json:"stability,omitempty" yaml:"stability,omitempty"`
}

func (a *app) scoreCommand() *cobra.Command {
	var fixture string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Resolve a type code from an answer fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := a.newLogger()
			if err != nil {
				return fmt.Errorf("creating a logger: %w", err)
			}
			defer log.Sync()

			tables, err := a.tables()
			if err != nil {
				return err
			}
			var f scoreFixture
			if err := readFixture(fixture, &f); err != nil {
				return err
			}
			in, err := f.resolverInput()
			if err != nil {
				return err
			}

			if missing := service.MissingAnswers(in.Questions, in.Answers); len(missing) > 0 {
				log.Debug("fixture incomplete", zap.Strings("missing", missing))
				return a.write(cmd.OutOrStdout(), scoreReport{Missing: missing})
			}
			res, err := service.ResolveType(in, tables.resolver())
			if err != nil {
				return err
			}
			log.Debug("fixture scored", zap.String("type_code", res.Result.TypeCode), zap.Int("pending_ties", len(res.PendingTies)))
			report := scoreReport{
				TypeCode:    res.Result.TypeCode,
				Dimensions:  res.Result.Dimensions,
				Scores:      res.Result.ScoreMap(),
				Confidence:  res.Result.ConfidenceMap(),
				Borderline:  res.Result.Borderline,
				PendingTies: res.PendingTies,
			}
			validation, err := service.ValidateResponses(service.ValidationInput{Questions: in.Questions, Answers: in.Answers}, service.DefaultValidationThresholds())
			if err != nil {
				return err
			}
			report.Validation = &validation
			if res.Resolved() {
				stability, err := service.AssessStability(res.Result, in.Answers, in.Questions)
				if err != nil {
					return err
				}
				report.Stability = &stability
			}
			return a.write(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVarP(&fixture, "fixture", "f", "", "yaml file with questions and answers")
	cmd.MarkFlagRequired("fixture")
	return cmd
}

func (a *app) matchCommand() *cobra.Command {
	var (
		fixture   string
		typeCode  string
		policy    string
		threshold float64
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank careers for a type code from a match fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := a.newLogger()
			if err != nil {
				return fmt.Errorf("creating a logger: %w", err)
			}
			defer log.Sync()

			tables, err := a.tables()
			if err != nil {
				return err
			}
			var f matchFixture
			if err := readFixture(fixture, &f); err != nil {
				return err
			}
			if typeCode != "" {
				f.TypeCode = typeCode
			}
			code, err := domain.ParseTypeCode(f.TypeCode)
			if err != nil {
				return err
			}
			f.TypeCode = code
			pol, err := domain.ParseDeploymentPolicy(policy)
			if err != nil {
				return err
			}

			t := tables.Threshold
			if cmd.Flags().Changed("threshold") {
				t = threshold
			}
			n := tables.Limit
			if cmd.Flags().Changed("limit") {
				n = limit
			}
			matches, err := service.RankCareers(service.MatchRequest{
				TypeCode:  code,
				Policy:    pol,
				Threshold: &t,
				Limit:     n,
				Rows:      f.rows(),
				Links:     f.links(),
				Boosts:    tables.Boosts,
			})
			if err != nil {
				return err
			}
			log.Debug("careers ranked", zap.String("type_code", code), zap.String("policy", string(pol)), zap.Int("matches", len(matches)))
			return a.write(cmd.OutOrStdout(), matches)
		},
	}
	cmd.Flags().StringVarP(&fixture, "fixture", "f", "", "yaml file with career scores and pathway links")
	cmd.Flags().StringVarP(&typeCode, "type", "t", "", "type code, overrides the fixture")
	cmd.Flags().StringVarP(&policy, "policy", "p", string(domain.PolicyStandard), "deployment policy: STANDARD or ADVANCED")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum adjusted score, overrides the config")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum careers returned, overrides the config")
	cmd.MarkFlagRequired("fixture")
	return cmd
}

func (a *app) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the embedded database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), db.Schema())
			return err
		},
	}
}

func (a *app) migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema to a database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := a.newLogger()
			if err != nil {
				return fmt.Errorf("creating a logger: %w", err)
			}
			defer log.Sync()

			url := a.v.GetString("database-url")
			if strings.TrimSpace(url) == "" {
				return fmt.Errorf("database url required (--database-url or MASARK_DATABASE_URL)")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			pool, err := db.NewPool(ctx, &config.Config{DatabaseURL: url, DBMaxConns: 2})
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()
			if err := db.Ping(ctx, pool); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}
			if err := db.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("db migrate: %w", err)
			}
			log.Info("schema applied")
			return nil
		},
	}
	cmd.Flags().String("database-url", "", "postgres connection string")
	a.v.BindPFlag("database-url", cmd.Flags().Lookup("database-url"))
	return cmd
}

func (a *app) write(w io.Writer, v any) error {
	switch format := strings.ToLower(a.v.GetString("output")); format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

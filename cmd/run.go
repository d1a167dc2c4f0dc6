package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jobsift/jobsift/internal/ai/gemini"
	"github.com/jobsift/jobsift/internal/browser"
	"github.com/jobsift/jobsift/internal/discovery"
	"github.com/jobsift/jobsift/internal/jobs"
	"github.com/jobsift/jobsift/internal/logger"
	"github.com/jobsift/jobsift/internal/pipeline"
	"github.com/jobsift/jobsift/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	defaultOutputFile = "output.json"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one job search against a company's careers site",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("title", "t", "", "job title to look for")
	runCmd.Flags().StringP("company", "c", "", "company name")
	runCmd.Flags().String("domain", "", "company domain, skips company website discovery")
	runCmd.Flags().StringP("location", "l", "", "preferred location")
	runCmd.Flags().StringP("output", "o", "", "path for the result JSON (default is "+defaultOutputFile+")")
	runCmd.Flags().Int("max-pages", 0, "maximum number of listing pages to walk")
	runCmd.Flags().Bool("headless", true, "run the browser without a visible window")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before scraping")

	viper.BindPFlag("target.title", runCmd.Flags().Lookup("title"))
	viper.BindPFlag("target.company", runCmd.Flags().Lookup("company"))
	viper.BindPFlag("target.domain", runCmd.Flags().Lookup("domain"))
	viper.BindPFlag("target.location", runCmd.Flags().Lookup("location"))
	viper.BindPFlag("output", runCmd.Flags().Lookup("output"))
	viper.BindPFlag("max-pages", runCmd.Flags().Lookup("max-pages"))
	viper.BindPFlag("browser.headless", runCmd.Flags().Lookup("headless"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		config = &Config{}
	}

	logger.Info("starting the jobsift", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	target, err := resolveTarget(config)
	if err != nil {
		logger.Fatal("resolving the job target", zap.Error(err))
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		if !confirmRun(target, logger) {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal(
			"creating the gemini client",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY or the 'ai.api-key-file' key in the configuration file"),
		)
	}

	session, err := browser.NewSession(browser.Options{
		Headless: viper.GetBool("browser.headless"),
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("launching the browser", zap.Error(err))
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing the browser", zap.Error(err))
		}
	}()

	p := pipeline.New(pipeline.Options{
		Driver:    session,
		Finder:    discovery.NewClient(logger),
		Generator: generator,
		MaxPages:  viper.GetInt("max-pages"),
		Logger:    logger,
	})

	result := p.Run(ctx, target)

	output := strings.TrimSpace(viper.GetString("output"))
	if output == "" {
		output = defaultOutputFile
	}

	// The result document is written for failed runs too.
	if err := result.WriteFile(output); err != nil {
		logger.Fatal("writing the result file", zap.Error(err))
	}
	logger.Info("results saved", zap.String("filename", output))

	if !result.Success {
		logger.Error("scraping failed",
			zap.String("error", result.Error),
			zap.String("error_type", result.ErrorType),
			zap.String("recommendation", result.Recommendation),
		)
		os.Exit(1)
	}

	logger.Info("scraping succeeded", zap.Int("jobs_found", result.JobsFound))
}

// resolveTarget merges the config and flags and asks for whatever mandatory
// field is still missing.
func resolveTarget(config *Config) (jobs.Target, error) {
	target := jobs.Target{}
	if config.Target != nil {
		target = *config.Target
	}

	if strings.TrimSpace(target.Title) == "" {
		title, err := askFor("Job title")
		if err != nil {
			return target, err
		}
		target.Title = title
	}

	if strings.TrimSpace(target.CompanyName) == "" && strings.TrimSpace(target.CompanyDomain) == "" {
		company, err := askFor("Company name")
		if err != nil {
			return target, err
		}
		target.CompanyName = company
	}

	return target, target.Validate()
}

func askFor(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("%s is required", strings.ToLower(label))
			}
			return nil
		},
	}
	return prompt.Run()
}

func confirmRun(target jobs.Target, logger *zap.Logger) bool {
	company := target.CompanyName
	if company == "" {
		company = target.CompanyDomain
	}

	prompt := promptui.Select{
		Label: fmt.Sprintf("Search for %q at %s?", target.Title, company),
		Items: []string{PromptYes, PromptNo},
	}

	_, action, err := prompt.Run()
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
	return action == PromptYes
}

func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*gemini.Generator, error) {
	if cfg == nil {
		cfg = &AIConfig{}
	}

	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		key = strings.TrimSpace(viper.GetString("ai.api-key"))
	}
	keyFile := strings.TrimSpace(cfg.APIKeyFile)
	if keyFile == "" {
		keyFile = strings.TrimSpace(viper.GetString("ai.api-key-file"))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: key,
		File:  keyFile,
	})
	if err != nil {
		return nil, err
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Model),
	)

	return gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, genLogger)
}

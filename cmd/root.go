package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "jobpulse"

	envProduction = "production"
)

type Config struct {
	Environment string `mapstructure:"environment"`

	Database *struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`

	FranceTravail *struct {
		ClientID         string `mapstructure:"client-id"`
		ClientSecretFile string `mapstructure:"client-secret-file"`
	} `mapstructure:"france-travail"`

	Voyage *struct {
		APIKeyFile     string `mapstructure:"api-key-file"`
		EmbeddingModel string `mapstructure:"embedding-model"`
		RerankModel    string `mapstructure:"rerank-model"`
	} `mapstructure:"voyage"`

	Scoring *struct {
		Threshold float64 `mapstructure:"threshold"`
		TopK      int     `mapstructure:"top-k"`
	} `mapstructure:"scoring"`

	LLM *struct {
		MistralAPIKeyFile string `mapstructure:"mistral-api-key-file"`
		OpenAIAPIKeyFile  string `mapstructure:"openai-api-key-file"`
		GroqAPIKeyFile    string `mapstructure:"groq-api-key-file"`
		GeminiAPIKeyFile  string `mapstructure:"gemini-api-key-file"`
		// Models maps an environment name to the primary Mistral model used
		// for that environment.
		Models map[string]string `mapstructure:"models"`
	} `mapstructure:"llm"`

	Pipeline *struct {
		Region   string `mapstructure:"region"`
		CronSpec string `mapstructure:"cron-spec"`
	} `mapstructure:"pipeline"`
}

// PrimaryModel resolves the environment-specific generation model once at
// startup; unconfigured environments fall back to the small tier.
func (c *Config) PrimaryModel() string {
	if c.LLM != nil {
		if model, ok := c.LLM.Models[c.Environment]; ok && model != "" {
			return model
		}
	}
	if c.Environment == envProduction {
		return "mistral-large-latest"
	}
	return "mistral-small-latest"
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobpulse collects job offers from France Travail, ranks them against a candidate profile and enriches the best matches",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("database.url", "JOBPULSE_DATABASE_URL"); err != nil {
		log.Fatalf("binding JOBPULSE_DATABASE_URL environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobpulse.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the commands that talk to the outside world.
	if runCmd.CalledAs() == "" && serveCmd.CalledAs() == "" && enrichCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

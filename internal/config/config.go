package config

import (
	"github.com/spf13/viper"
)

// The service is expected to run in EKS with the DB connection variables set
// as environment variables on the pod; AWS config and the queue URLs are
// handled the same way.

type Config struct {
	DBHost            string `mapstructure:"DB_HOST"`
	DBPort            string `mapstructure:"DB_PORT"`
	DBUser            string `mapstructure:"DB_USER"`
	DBPassword        string `mapstructure:"DB_PASSWORD"`
	DBName            string `mapstructure:"DB_NAME"`
	ServerPort        string `mapstructure:"SERVER_PORT"`
	AWSRegion         string `mapstructure:"AWS_REGION"`
	AlertSQSQueueURL  string `mapstructure:"ALERT_SQS_QUEUE_URL"`
	EmailSQSQueueURL  string `mapstructure:"EMAIL_SQS_QUEUE_URL"`
	AWSEndpoint       string `mapstructure:"AWS_ENDPOINT"`
	DispatcherAPIURL  string `mapstructure:"DISPATCHER_API_URL"`
	EmailSender       string `mapstructure:"EMAIL_SENDER"`
	SimulationWorkers int    `mapstructure:"SIMULATION_WORKERS"`
	IsLocalDev        bool   `mapstructure:"IS_LOCAL_DEV"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("DB_HOST", "db")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "compliance_db")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("AWS_REGION", "us-east-1") // Default region for AWS services
	viper.SetDefault("ALERT_SQS_QUEUE_URL", "http://localstack:4566/000000000000/violation-alert-queue")
	viper.SetDefault("EMAIL_SQS_QUEUE_URL", "http://localstack:4566/000000000000/violation-email-queue")
	viper.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	viper.SetDefault("DISPATCHER_API_URL", "http://localhost:8081/")
	viper.SetDefault("EMAIL_SENDER", "compliance@factory.com")
	viper.SetDefault("SIMULATION_WORKERS", 8)
	viper.SetDefault("IS_LOCAL_DEV", false)

	// Read in environment variables that match the keys.
	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	return
}

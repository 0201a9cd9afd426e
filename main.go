package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/formforge/ruleengine/agent"
	"github.com/formforge/ruleengine/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "formforge", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("queue-impl", "redis", "implementation of underline queue")
	cmd.Flags().Int("rule-cache-ttl", 30, "rule cache ttl in seconds")
	cmd.Flags().Int("sla-scan-interval", 60, "sla scan interval in seconds")
	cmd.Flags().Int("delivery-batch-size", 16, "descriptors popped per delivery poll")
	cmd.Flags().Int("delivery-capacity", 64, "delivery worker capacity")
	cmd.Flags().Int("delivery-poll-interval", 500, "delivery poll interval in milliseconds")
	cmd.Flags().Int("delivery-max-retries", 3, "webhook delivery retries before dropping")
	cmd.Flags().String("audit-log-file", "", "file for the evaluation/delivery audit trail")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.RedisQueueConfig.Addrs = c.cfg.RedisConfig.Addrs
	c.cfg.RedisQueueConfig.Namespace = c.cfg.RedisConfig.Namespace
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.QueueType = config.QueueType(viper.GetString("queue-impl"))
	c.cfg.RuleCacheTTLSeconds = viper.GetInt("rule-cache-ttl")
	c.cfg.SlaScanIntervalSeconds = viper.GetInt("sla-scan-interval")
	c.cfg.DeliveryBatchSize = viper.GetInt("delivery-batch-size")
	c.cfg.DeliveryCapacity = viper.GetInt("delivery-capacity")
	c.cfg.DeliveryPollIntervalMillis = viper.GetInt("delivery-poll-interval")
	c.cfg.DeliveryMaxRetries = viper.GetInt("delivery-max-retries")
	c.cfg.AuditLogFile = viper.GetString("audit-log-file")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	var err error
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "ruleengine",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

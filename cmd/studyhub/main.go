package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/studyhub/internal/profile"
	"github.com/hrygo/studyhub/internal/version"
	"github.com/hrygo/studyhub/server"
	"github.com/hrygo/studyhub/server/auth"
	"github.com/hrygo/studyhub/store"
	"github.com/hrygo/studyhub/store/cache"
	"github.com/hrygo/studyhub/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "studyhub",
		Short: "Spaced-repetition study scheduler for published articles.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// A missing .env is fine, the environment may already be set.
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background runners.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			storeInstance, err := openStore(cmd.Context(), instanceProfile, nil)
			if err != nil {
				return err
			}
			defer storeInstance.Close()
			schemaVersion, err := storeInstance.GetCurrentSchemaVersion()
			if err != nil {
				return err
			}
			fmt.Printf("database migrated to schema %s\n", schemaVersion)
			return nil
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user.",
		RunE: func(_ *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			userID := viper.GetInt32("user")
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive user id")
			}
			token, err := auth.NewAuthenticator(instanceProfile.Secret).GenerateToken(userID, viper.GetDuration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)
	viper.SetDefault("reminder-interval", time.Minute)
	viper.SetDefault("ttl", 24*time.Hour)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver, sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of your studyhub instance")
	rootCmd.PersistentFlags().String("timezone", "", "time zone of analytics periods")
	rootCmd.PersistentFlags().Duration("reminder-interval", time.Minute, "how often due reminders are delivered")
	tokenCmd.Flags().Int32("user", 0, "user id the token is issued for")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "instance-url", "timezone", "reminder-interval"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	for _, name := range []string{"user", "ttl"} {
		if err := viper.BindPFlag(name, tokenCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("studyhub")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:             viper.GetString("mode"),
		Addr:             viper.GetString("addr"),
		Port:             viper.GetInt("port"),
		Data:             viper.GetString("data"),
		Driver:           viper.GetString("driver"),
		DSN:              viper.GetString("dsn"),
		InstanceURL:      viper.GetString("instance-url"),
		Timezone:         viper.GetString("timezone"),
		ReminderInterval: viper.GetDuration("reminder-interval"),
		Version:          version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func openStore(ctx context.Context, instanceProfile *profile.Profile, l2 cache.RedisCacheInterface) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to create db driver: %w", err)
	}
	var opts []store.Option
	if l2 != nil {
		opts = append(opts, store.WithRedisCache(l2))
	}
	storeInstance := store.New(dbDriver, instanceProfile, opts...)
	if err := storeInstance.Migrate(ctx); err != nil {
		storeInstance.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return storeInstance, nil
}

func runServe(ctx context.Context) error {
	instanceProfile, err := loadProfile()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	redisClient, err := server.NewRedisClient(ctx, instanceProfile)
	if err != nil {
		return err
	}
	var l2 cache.RedisCacheInterface
	if redisClient != nil {
		l2 = cache.NewRedisCacheFromClient(redisClient, "studyhub:", 10*time.Minute)
	}

	storeInstance, err := openStore(ctx, instanceProfile, l2)
	if err != nil {
		return err
	}

	s, err := server.NewServer(ctx, instanceProfile, storeInstance, redisClient)
	if err != nil {
		storeInstance.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err := s.Start(ctx); err != nil {
		storeInstance.Close()
		return fmt.Errorf("failed to start server: %w", err)
	}
	printGreetings(instanceProfile)

	<-c
	s.Shutdown(ctx)
	cancel()
	return nil
}

func printGreetings(instanceProfile *profile.Profile) {
	slog.Info("studyhub is ready",
		"version", instanceProfile.Version,
		"mode", instanceProfile.Mode,
		"driver", instanceProfile.Driver,
		"addr", instanceProfile.Addr,
		"port", instanceProfile.Port,
		"analytics", instanceProfile.AnalyticsEnabled,
		"redis", instanceProfile.RedisAddr != "",
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

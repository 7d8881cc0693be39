package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"github.com/nhle/deskalert/internal/app"
	"github.com/nhle/deskalert/internal/credential"
	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/model"
)

// Version is set at build time.
var Version = "dev"

func main() {
	var (
		configPath, envFile, storeSecret string
		genVAPID, writeConfig, quiet     bool
	)

	flag.StringVar(&configPath, "config", model.DefaultConfigPath(), "Path to the YAML configuration file")
	flag.StringVar(&envFile, "env", ".env", "Optional dotenv file loaded before the configuration")
	flag.StringVar(&storeSecret, "store-secret", "",
		fmt.Sprintf("Read a secret from stdin and store it in the keyring under this key (%s, %s)",
			credential.KeyBackendDSN, credential.KeyVAPIDPrivateKey))
	flag.BoolVar(&genVAPID, "gen-vapid", false, "Generate a VAPID key pair for web push and exit")
	flag.BoolVar(&writeConfig, "write-config", false, "Write the effective configuration to -config and exit")
	flag.BoolVar(&quiet, "quiet", false, "Do not render toasts on the console")
	flag.Parse()

	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Cannot load %s: %s\n", envFile, err.Error())
	}

	switch {
	case genVAPID:
		os.Exit(generateVAPID())
	case storeSecret != "":
		os.Exit(saveSecret(storeSecret))
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err.Error())
		os.Exit(1)
	}

	if writeConfig {
		if err := model.SaveConfig(configPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write configuration: %s\n", err.Error())
			os.Exit(1)
		}
		fmt.Printf("Configuration written to %s\n", configPath)
		return
	}

	if err := logging.Configure(cfg.Log.Level, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %s\n", err.Error())
		os.Exit(1)
	}
	logger := logging.GetLogger(logging.App)
	logger.Printf("[INFO] deskalert %s starting for user %s\n", Version, cfg.UserID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	deps := app.Deps{}
	if !quiet {
		deps.Console = os.Stdout
	}

	svc, err := app.New(ctx, cfg, deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %s\n", err.Error())
		os.Exit(1)
	}

	runErr := svc.Run(ctx)
	if err := svc.Close(); err != nil {
		logger.Printf("[WARN] Error during shutdown: %s\n", err.Error())
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "deskalert stopped: %s\n", runErr.Error())
		os.Exit(1)
	}
	logger.Println("[INFO] deskalert stopped")
}

func generateVAPID() int {
	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate VAPID keys: %s\n", err.Error())
		return 1
	}
	fmt.Printf("notifier.webpush.public_key: %s\n", pub)
	fmt.Printf("VAPID private key (store with -store-secret %s):\n%s\n", credential.KeyVAPIDPrivateKey, priv)
	return 0
}

func saveSecret(key string) int {
	fmt.Fprintf(os.Stderr, "Enter value for %s: ", key)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintf(os.Stderr, "\nCannot read secret: %s\n", err.Error())
		return 1
	}
	value := strings.TrimSpace(line)
	if value == "" {
		fmt.Fprintln(os.Stderr, "\nRefusing to store an empty secret")
		return 1
	}
	if err := credential.Set(key, value); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to store secret: %s\n", err.Error())
		return 1
	}
	fmt.Fprintf(os.Stderr, "\nStored %s in the keyring\n", key)
	return 0
}

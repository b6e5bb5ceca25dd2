package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"EFacturaPlatform/services/compliance-cli/internal/client"
	"EFacturaPlatform/services/compliance-cli/internal/output"
)

var rootCtx = context.Background()

// rootCmd представляет базовую команду CLI
var rootCmd = &cobra.Command{
	Use:   "efactura",
	Short: "eFactura CLI - Управление интеграцией с ANAF SPV",
	Long: `eFactura CLI - инструмент командной строки для работы с
Compliance Engine: подача фактур, транспортные декларации e-Transport,
почтовый ящик SPV и регуляторные сроки.`,
	Version: "1.0.0",
}

// Execute запускает корневую команду
func Execute(ctx context.Context) error {
	rootCtx = ctx
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.efactura.yaml)")
	rootCmd.PersistentFlags().StringP("server", "s", "http://localhost:8080", "compliance engine address")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringP("tenant", "t", "", "tenant id")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("tenant", rootCmd.PersistentFlags().Lookup("tenant"))

	rootCmd.AddCommand(submissionsCmd)
	rootCmd.AddCommand(transportsCmd)
	rootCmd.AddCommand(inboxCmd)
	rootCmd.AddCommand(deadlinesCmd)
	rootCmd.AddCommand(spvCmd)
}

// initConfig читает конфигурацию из файла и переменных окружения
func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".efactura")
	}

	viper.SetEnvPrefix("EFACTURA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// apiClient создает клиент API из текущей конфигурации
func apiClient() *client.Client {
	return client.New(viper.GetString("server"), 30*time.Second)
}

// requireTenant возвращает tenant id из флага или конфигурации
func requireTenant() (string, error) {
	tenant := viper.GetString("tenant")
	if tenant == "" {
		return "", fmt.Errorf("tenant id is required: pass --tenant or set tenant in config")
	}
	return tenant, nil
}

// printResult форматирует и печатает результат команды
func printResult(data interface{}) error {
	formatter, err := output.ForFormat(viper.GetString("output"))
	if err != nil {
		return err
	}

	formatted, err := formatter.Format(data)
	if err != nil {
		return err
	}
	fmt.Println(formatted)
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"EFacturaPlatform/services/compliance-cli/internal/output"
)

var spvCmd = &cobra.Command{
	Use:   "spv",
	Short: "Подключение к ANAF SPV",
	Long: `Команды для управления OAuth подключением арендатора к SPV:
состояние токена и запуск авторизации.`,
}

var spvStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать состояние подключения",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleSpvStatus()
	},
}

var spvAuthorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Начать авторизацию в SPV",
	Long: `Запрашивает URL авторизации ANAF. Откройте его в браузере
с установленным квалифицированным сертификатом: после подтверждения
токен сохраняется на стороне Compliance Engine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleSpvAuthorize()
	},
}

func init() {
	spvCmd.AddCommand(spvStatusCmd)
	spvCmd.AddCommand(spvAuthorizeCmd)
}

func handleSpvStatus() error {
	tenant, err := requireTenant()
	if err != nil {
		return err
	}

	conn, err := apiClient().SpvConnection(rootCtx, tenant)
	if err != nil {
		return err
	}

	table := output.NewTableData([]string{"Tenant", "Status", "Expires", "Scope"}, conn)
	table.AddRow(conn.TenantID, conn.Status, formatTimestamp(conn.ExpiresAt), conn.Scope)
	return printResult(table)
}

func handleSpvAuthorize() error {
	tenant, err := requireTenant()
	if err != nil {
		return err
	}

	authorizeURL, err := apiClient().SpvAuthorize(rootCtx, tenant)
	if err != nil {
		return err
	}

	fmt.Println("Open the following URL in a browser with your qualified certificate:")
	fmt.Println(authorizeURL)
	return nil
}

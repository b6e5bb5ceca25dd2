package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"EFacturaPlatform/services/compliance-cli/internal/client"
	"EFacturaPlatform/services/compliance-cli/internal/output"
)

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Управление подачами фактур",
	Long: `Команды для работы с подачами e-Factura:
список, детали, подача из файла, отмена и повтор после сбоя.`,
}

var submissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать список подач",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleSubmissionsList(cmd)
	},
}

var submissionsGetCmd = &cobra.Command{
	Use:   "get [submission-id]",
	Short: "Получить детали подачи",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := apiClient().GetSubmission(rootCtx, args[0])
		if err != nil {
			return err
		}
		return printResult(submissionTable([]client.Submission{*sub}, sub))
	},
}

var submissionsSubmitCmd = &cobra.Command{
	Use:   "submit [invoice.json]",
	Short: "Подать фактуру из JSON файла",
	Long: `Читает фактуру из JSON файла и подает ее через Compliance Engine.
Фактура, не прошедшая локальную валидацию, остается в DRAFT, а ошибка
перечисляет все невалидные поля.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleSubmissionsSubmit(cmd, args[0])
	},
}

var submissionsCancelCmd = &cobra.Command{
	Use:   "cancel [submission-id]",
	Short: "Отменить подачу",
	Long: `Отменяет подачу. После передачи в шлюз отмена локальная:
опрос продолжается до вердикта шлюза.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := apiClient().CancelSubmission(rootCtx, args[0])
		if err != nil {
			return err
		}
		return printResult(submissionTable([]client.Submission{*sub}, sub))
	},
}

var submissionsRetryCmd = &cobra.Command{
	Use:   "retry [submission-id]",
	Short: "Повторить подачу после сбоя",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := apiClient().RetrySubmission(rootCtx, args[0])
		if err != nil {
			return err
		}
		return printResult(submissionTable([]client.Submission{*sub}, sub))
	},
}

func init() {
	submissionsCmd.AddCommand(submissionsListCmd)
	submissionsCmd.AddCommand(submissionsGetCmd)
	submissionsCmd.AddCommand(submissionsSubmitCmd)
	submissionsCmd.AddCommand(submissionsCancelCmd)
	submissionsCmd.AddCommand(submissionsRetryCmd)

	submissionsListCmd.Flags().StringP("status", "a", "", "фильтр по статусу (DRAFT, PENDING, SUBMITTED, ...)")
	submissionsListCmd.Flags().Bool("pending", false, "только подачи, ожидающие вердикта")
	submissionsListCmd.Flags().IntP("limit", "l", 50, "лимит записей")
}

func handleSubmissionsList(cmd *cobra.Command) error {
	tenant, err := requireTenant()
	if err != nil {
		return err
	}

	status, _ := cmd.Flags().GetString("status")
	pending, _ := cmd.Flags().GetBool("pending")
	limit, _ := cmd.Flags().GetInt("limit")

	list, err := apiClient().ListSubmissions(rootCtx, tenant, status, pending, limit)
	if err != nil {
		return err
	}
	return printResult(submissionTable(list.Submissions, list))
}

func handleSubmissionsSubmit(cmd *cobra.Command, path string) error {
	tenant, err := requireTenant()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read invoice file: %w", err)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("invoice file is not valid JSON: %s", path)
	}

	sub, err := apiClient().SubmitInvoice(rootCtx, tenant, raw)
	if err != nil {
		return err
	}

	fmt.Printf("Invoice %s submitted, tracking id: %s\n", sub.InvoiceID, sub.GatewayTrackingID)
	return printResult(submissionTable([]client.Submission{*sub}, sub))
}

func submissionTable(submissions []client.Submission, source interface{}) *output.TableData {
	table := output.NewTableData([]string{"ID", "Invoice", "Status", "Tracking", "Attempts", "Updated"}, source)
	for _, sub := range submissions {
		table.AddRow(sub.ID, sub.InvoiceID, sub.Status, sub.GatewayTrackingID,
			fmt.Sprintf("%d", sub.AttemptCount), formatTimestamp(sub.UpdatedAt))
	}
	return table
}

// formatTimestamp укорачивает RFC3339 время для табличного вывода
func formatTimestamp(raw string) string {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return ts.Format("2006-01-02 15:04:05")
}

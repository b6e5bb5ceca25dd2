package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"EFacturaPlatform/services/compliance-cli/internal/output"
)

var deadlinesCmd = &cobra.Command{
	Use:   "deadlines",
	Short: "Регуляторные сроки отчетности",
	Long: `Показывает вычисленные сроки сдачи отчетности:
SAF-T D406, декларация НДС и пятидневное окно e-Factura.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleDeadlines(cmd)
	},
}

func init() {
	deadlinesCmd.Flags().Bool("due-soon", false, "только сроки в пределах порога уведомления")
}

func handleDeadlines(cmd *cobra.Command) error {
	dueSoon, _ := cmd.Flags().GetBool("due-soon")

	list, err := apiClient().ListDeadlines(rootCtx, dueSoon)
	if err != nil {
		return err
	}

	table := output.NewTableData([]string{"Kind", "Due", "Days Left"}, list)
	for _, deadline := range list.Deadlines {
		table.AddRow(deadline.Kind, formatTimestamp(deadline.DueAt), fmt.Sprintf("%d", deadline.DaysUntil))
	}
	return printResult(table)
}

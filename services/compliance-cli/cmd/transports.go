package cmd

import (
	"github.com/spf13/cobra"

	"EFacturaPlatform/services/compliance-cli/internal/client"
	"EFacturaPlatform/services/compliance-cli/internal/output"
)

var transportsCmd = &cobra.Command{
	Use:   "transports",
	Short: "Управление транспортными декларациями e-Transport",
	Long: `Команды для работы с декларациями e-Transport:
список и переходы жизненного цикла (validate, submit, start, complete, cancel).`,
}

var transportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать список деклараций",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleTransportsList(cmd)
	},
}

func init() {
	transportsCmd.AddCommand(transportsListCmd)
	transportsListCmd.Flags().IntP("limit", "l", 50, "лимит записей")

	// Переходы жизненного цикла разделяют один обработчик
	for _, action := range []struct {
		use   string
		short string
	}{
		{"validate", "Проверить реквизиты декларации"},
		{"submit", "Передать декларацию в шлюз"},
		{"start", "Зафиксировать начало перевозки"},
		{"complete", "Зафиксировать завершение перевозки"},
		{"cancel", "Отменить декларацию"},
	} {
		action := action
		transportsCmd.AddCommand(&cobra.Command{
			Use:   action.use + " [transport-id]",
			Short: action.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				doc, err := apiClient().TransportAction(rootCtx, args[0], action.use)
				if err != nil {
					return err
				}
				return printResult(transportTable([]client.Transport{*doc}, doc))
			},
		})
	}
}

func handleTransportsList(cmd *cobra.Command) error {
	tenant, err := requireTenant()
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	list, err := apiClient().ListTransports(rootCtx, tenant, limit)
	if err != nil {
		return err
	}
	return printResult(transportTable(list.Transports, list))
}

func transportTable(transports []client.Transport, source interface{}) *output.TableData {
	table := output.NewTableData([]string{"ID", "Plate", "Route", "Status", "UIT"}, source)
	for _, doc := range transports {
		table.AddRow(doc.ID, doc.VehiclePlate, doc.RouteFrom+" -> "+doc.RouteTo, doc.Status, doc.GatewayUitCode)
	}
	return table
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"EFacturaPlatform/services/compliance-cli/internal/output"
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Почтовый ящик SPV",
	Long: `Команды для работы с сообщениями шлюза ANAF:
список, пометка прочитанным и скачивание документов.`,
}

var inboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать сообщения",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleInboxList(cmd)
	},
}

var inboxReadCmd = &cobra.Command{
	Use:   "read [message-id]",
	Short: "Пометить сообщение прочитанным",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient().MarkMessageRead(rootCtx, args[0]); err != nil {
			return err
		}
		fmt.Println("Message marked as read")
		return nil
	},
}

var inboxDownloadCmd = &cobra.Command{
	Use:   "download [message-id]",
	Short: "Скачать документ сообщения (ZIP или XML)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleInboxDownload(cmd, args[0])
	},
}

func init() {
	inboxCmd.AddCommand(inboxListCmd)
	inboxCmd.AddCommand(inboxReadCmd)
	inboxCmd.AddCommand(inboxDownloadCmd)

	inboxListCmd.Flags().BoolP("unread", "u", false, "только непрочитанные")
	inboxListCmd.Flags().IntP("limit", "l", 50, "лимит записей")

	inboxDownloadCmd.Flags().StringP("file", "f", "", "путь сохранения (по умолчанию <message-id>.zip)")
	inboxDownloadCmd.Flags().Bool("xml", false, "извлечь XML документа вместо ZIP архива")
}

func handleInboxList(cmd *cobra.Command) error {
	tenant, err := requireTenant()
	if err != nil {
		return err
	}

	unread, _ := cmd.Flags().GetBool("unread")
	limit, _ := cmd.Flags().GetInt("limit")

	list, err := apiClient().ListInbox(rootCtx, tenant, unread, limit)
	if err != nil {
		return err
	}

	table := output.NewTableData([]string{"ID", "Type", "Tracking", "Read", "Received", "Details"}, list)
	for _, msg := range list.Messages {
		read := ""
		if msg.Read {
			read = "✓"
		}
		table.AddRow(msg.ID, msg.Type, msg.RelatedTrackingID, read, formatTimestamp(msg.ReceivedAt), truncate(msg.Details, 60))
	}
	return printResult(table)
}

func handleInboxDownload(cmd *cobra.Command, id string) error {
	asXML, _ := cmd.Flags().GetBool("xml")

	data, err := apiClient().DownloadMessage(rootCtx, id, asXML)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		ext := ".zip"
		if asXML {
			ext = ".xml"
		}
		path = id + ext
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	fmt.Printf("Saved %d bytes to %s\n", len(data), path)
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

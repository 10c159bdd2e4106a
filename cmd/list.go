package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/creativeprojects/feedme/cfg"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/creativeprojects/feedme/storage"
	"github.com/creativeprojects/feedme/term"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [config]",
	Short: "Display list of mailboxes with their number of messages",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(args)
	if err != nil {
		return err
	}
	data, err := listMailboxes(cmd.Context(), config.Mailbox)
	if err != nil {
		return err
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func listMailboxes(ctx context.Context, config cfg.Mailbox) (pterm.TableData, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	backend, err := newBackend(config, term.NewLogger(string(config.Type)))
	if err != nil {
		return nil, fmt.Errorf("cannot open mailbox: %w", err)
	}
	session := storage.NewSession(backend, term.NewLogger(""))
	if err := session.Login(ctx); err != nil {
		return nil, fmt.Errorf("cannot open mail store session: %w", err)
	}
	defer session.Logout()

	mailboxes, err := session.ListMailbox()
	if err != nil {
		return nil, fmt.Errorf("cannot list mailboxes: %w", err)
	}
	data := pterm.TableData{
		{"Folder", "Mailbox", "Messages", "Unseen"},
	}
	for _, info := range mailboxes {
		var messages, unseen string
		status, err := session.SelectMailbox(info)
		if err == nil {
			messages = strconv.FormatUint(uint64(status.Messages), 10)
			unseen = strconv.FormatUint(uint64(status.Unseen), 10)
			_ = session.UnselectMailbox()
		}
		data = append(data, []string{mailbox.FromNative(info.Name, info.Delimiter).String(), info.Name, messages, unseen})
	}
	return data, nil
}

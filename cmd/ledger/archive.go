package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	archiveUser string
	archiveOut  string
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Browse archived statements and exports",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived items, newest first",
	RunE:  runArchiveList,
}

var archiveGetCmd = &cobra.Command{
	Use:   "get <item-id>",
	Short: "Copy an archived item out of the archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveGet,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveListCmd, archiveGetCmd)

	archiveCmd.PersistentFlags().StringVar(&archiveUser, "user", "",
		"caller id the items were archived under (UUID)")
	archiveGetCmd.Flags().StringVarP(&archiveOut, "out", "o", "",
		"destination path (defaults to the item's original name)")
}

func runArchiveList(cmd *cobra.Command, _ []string) error {
	deps, err := InitDependencies("")
	if err != nil {
		return err
	}
	userID, err := parseUserID(archiveUser)
	if err != nil {
		return err
	}

	archive, err := deps.OpenArchive()
	if err != nil {
		return err
	}
	items, err := archive.List(cmd.Context(), userID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "archive is empty")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tBANK\tNAME\tSIZE\tCREATED")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			item.ID, item.Kind, item.Bank, item.Name, item.Size,
			item.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runArchiveGet(cmd *cobra.Command, args []string) error {
	deps, err := InitDependencies("")
	if err != nil {
		return err
	}
	userID, err := parseUserID(archiveUser)
	if err != nil {
		return err
	}
	itemID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid item id %q: %w", args[0], err)
	}

	archive, err := deps.OpenArchive()
	if err != nil {
		return err
	}
	rc, item, err := archive.Open(cmd.Context(), userID, itemID)
	if err != nil {
		return err
	}
	defer rc.Close()

	dest := archiveOut
	if dest == "" {
		dest = item.Name
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	n, err := io.Copy(f, rc)
	if err != nil {
		return fmt.Errorf("copy archived item: %w", err)
	}
	deps.Logger.Info("archived item written", "path", dest, "bytes", n)
	return nil
}

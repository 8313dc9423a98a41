package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:         "collections",
	Short:       "List collections in the vector store",
	Args:        cobra.NoArgs,
	Annotations: backendCommand(),
	RunE:        runCollections,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

func runCollections(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	names, err := documentService.Collections(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	if len(names) == 0 {
		cmd.Println("No collections found")
		return nil
	}
	for _, name := range names {
		cmd.Println(name)
	}
	return nil
}

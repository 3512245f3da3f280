package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/qdrantd/internal/embeddings"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known embedding models",
	Long:  `List the embedding models qdrantd can bind collections to, with their dimensions.`,
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tDIM\tPROVIDER\tDESCRIPTION")
	for _, m := range embeddings.Catalog() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", m.ModelName, m.VectorSize, m.ProviderType, m.Description)
	}
	return w.Flush()
}

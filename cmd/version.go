package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gradepush/gradepush/lib/consts"
)

func getVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("gradepush v" + consts.Version)
		},
	}
}

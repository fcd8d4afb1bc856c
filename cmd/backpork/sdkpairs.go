package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"github.com/Nazky/Auto-Backpork/internal/domain/services"
)

var sdkPairsCmd = &cobra.Command{
	Use:   "sdk-pairs",
	Short: "List the supported SDK pair ids and their version values",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%-4s %-12s %-12s\n", "ID", "PLATFORM", "EXECUTABLE")
		for _, pair := range services.NewSdkVersionTable().Pairs() {
			marker := ""
			if pair.ID == entities.DefaultSdkPair {
				marker = " (default)"
			}
			fmt.Printf("%-4d 0x%08X   0x%08X%s\n", pair.ID, pair.PlatformVersion, pair.ExecutableVersion, marker)
		}
	},
}

func init() {
	rootCmd.AddCommand(sdkPairsCmd)
}

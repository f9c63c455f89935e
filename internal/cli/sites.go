package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ndhoang/truyendl/internal/sites"
	"github.com/ndhoang/truyendl/internal/tui"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List supported sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Supported sites:")
		fmt.Println()
		for _, adapter := range sites.DefaultRegistry().Adapters() {
			fmt.Printf("  %s\n", tui.TitleStyle.Render(adapter.Name()))
			fmt.Printf("    %s\n", tui.DimStyle.Render(strings.Join(adapter.Domains(), ", ")))
		}
		return nil
	},
}

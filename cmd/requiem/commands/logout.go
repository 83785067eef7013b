package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Warner231936/Requiem-AIweb/internal/credstore"
)

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := credstore.New()
			if _, ok := store.Get(); !ok {
				fmt.Println("No stored credential.")
				return nil
			}
			store.Clear()
			fmt.Println("Logged out.")
			return nil
		},
	}
}

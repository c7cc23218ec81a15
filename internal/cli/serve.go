package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/depfetch/pkg/reposerver"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the artifact cache as a Maven-layout repository",
		Long: `Serve exposes the artifact cache over HTTP in the standard remote layout, so
another machine can use it with --repo http://host:port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := c.artifactRoot()
			if err != nil {
				return err
			}
			c.printInfo("Serving %s on %s", root, addr)
			return reposerver.New(root, c.Logger).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8780", "listen address")
	return cmd
}

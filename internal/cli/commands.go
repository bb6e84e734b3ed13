package cli

func init() {
	rootCmd.AddCommand(setupFramesCmd())
	rootCmd.AddCommand(setupSearchCmd())
	rootCmd.AddCommand(setupExportCmd())
	rootCmd.AddCommand(setupReplayCmd())
	rootCmd.AddCommand(setupProfileCmd())
}

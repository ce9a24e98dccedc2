package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/polysynth/pkg/framework/param"
	"github.com/justyntemme/polysynth/pkg/patch"
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Inspect and check patch files",
	Long: `Inspect and check patch files.

Subcommands:
  dump       Print a patch document (the init patch without --patch)
  validate   Check patch files against the parameter ranges
  params     List the parameters editable while playing`,
}

var patchDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print a patch document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPatch()
		if err != nil {
			return err
		}
		return patch.Save(cmd.OutOrStdout(), p)
	},
}

var patchValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check patch files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed int
		for _, path := range args {
			p, err := patch.LoadFile(path)
			if err == nil {
				err = patch.Validate(p)
			}
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d patches invalid", failed, len(args))
		}
		return nil
	},
}

var patchParamsCmd = &cobra.Command{
	Use:   "params",
	Short: "List the live parameters and their ranges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range param.Paths() {
			d, _ := param.Describe(path)
			fmt.Fprintf(cmd.OutOrStdout(), "%-26s %-20s %s .. %s (default %s)\n",
				path, d.Name, d.Format(d.Min), d.Format(d.Max), d.Format(d.DefaultValue))
		}
		return nil
	},
}

func init() {
	patchCmd.AddCommand(patchDumpCmd)
	patchCmd.AddCommand(patchValidateCmd)
	patchCmd.AddCommand(patchParamsCmd)
}

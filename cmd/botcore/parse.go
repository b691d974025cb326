package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"botcore/pkg/commands"
)

var (
	parsePrefix       string
	parseDropTrailing bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <message>",
	Short: "Show how a message splits into a command and its arguments",
	Long: `Parse a message the way the engine does and print the identifier and the
argument tokens. Nothing is executed.

Examples:
  botcore parse "/remind: 10m, tea is ready"
  botcore parse --prefix "!" "!man: remind"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := commands.NewParser(parsePrefix)
		p.DropTrailingEmpty = parseDropTrailing
		printParse(cmd.OutOrStdout(), p, strings.Join(args, " "))
		return nil
	},
}

func init() {
	parseCmd.Flags().StringVarP(&parsePrefix, "prefix", "p", commands.DefaultPrefix, "command prefix")
	parseCmd.Flags().BoolVar(&parseDropTrailing, "drop-trailing-empty", false, "drop a trailing empty argument")
}

func printParse(w io.Writer, p *commands.Parser, content string) {
	text, ok := p.Parse(content)
	if !ok {
		fmt.Fprintf(w, "Not a command (prefix %q)\n", p.Prefix())
		return
	}

	fmt.Fprintf(w, "Identifier: %s\n", text.Identifier)
	fmt.Fprintf(w, "Arguments:  %d\n", text.Count())
	for i, arg := range text.Arguments {
		fmt.Fprintf(w, "  [%d] %q\n", i, arg)
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quishield/quishield/pkg/engine"
	"github.com/quishield/quishield/pkg/report"
)

var scanCmd = &cobra.Command{
	Use:   "scan [payload]",
	Short: "Analyze one decoded QR payload",
	Long: `Analyze a decoded payload and print the risk decision.

The payload is passed as an argument, or piped on stdin when the argument
is "-" or absent. Output is a markdown report by default; use --json for
the machine-readable result document.

Examples:
  quishield scan "http://paypa1-login.com/verify"
  quishield scan "WIFI:T:nopass;S:FreeAirportWifi;;"
  zbarimg --raw poster.png | quishield scan - --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		outFile, _ := cmd.Flags().GetString("out")

		payload, err := readPayload(args)
		if err != nil {
			return err
		}

		analyzer := buildAnalyzer(cmd.Context())
		res := analyzer.Analyze(cmd.Context(), payload)

		// The report file must be closed before the exit below.
		if err := writeScanOutput(res, asJSON, outFile); err != nil {
			return err
		}

		// Exit non-zero on BLOCK so shell pipelines can gate on it.
		if res.Decision.RecommendedAction == engine.ActionBlock {
			os.Exit(2)
		}
		return nil
	},
}

// writeScanOutput renders the result to stdout or, when outFile is set, to
// a file that is closed before returning.
func writeScanOutput(res *engine.Result, asJSON bool, outFile string) error {
	dst := io.Writer(os.Stdout)
	var f *os.File
	if outFile != "" {
		var err error
		f, err = os.Create(outFile)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		dst = f
	}

	var err error
	if asJSON {
		enc := json.NewEncoder(dst)
		enc.SetIndent("", "  ")
		err = enc.Encode(res)
	} else {
		_, err = fmt.Fprint(dst, report.Markdown(res))
	}

	if f != nil {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func readPayload(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	raw, err := io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read payload from stdin: %w", err)
	}
	return strings.TrimRight(string(raw), "\n"), nil
}

func init() {
	scanCmd.Flags().Bool("json", false, "emit the full result document as JSON")
	scanCmd.Flags().StringP("out", "o", "", "write the report to a file instead of stdout")
	rootCmd.AddCommand(scanCmd)
}

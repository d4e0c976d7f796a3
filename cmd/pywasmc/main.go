// Command pywasmc compiles restricted-Python source into a Wasm binary. It
// carries no business logic of its own: every decision it makes is a thin
// pass-through to package pywasm.
package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fraudcore/pywasm"
	"github.com/fraudcore/pywasm/internal/pywasmlog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pywasmc",
		Short:         "Compile restricted-Python source into a deterministic Wasm module",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCompileCmd())
	return root
}

func newCompileCmd() *cobra.Command {
	var (
		outPath   string
		base64Out bool
		verbose   bool
		gasLimit  int32
		heapLimit int32
	)

	cmd := &cobra.Command{
		Use:   "compile [path]",
		Short: "Compile a Python source file (or stdin, with no path) to Wasm",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := uuid.NewString()

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}
			source, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}

			opts := []pywasm.CompilerOption{}
			if verbose {
				opts = append(opts, pywasm.WithLogger(pywasmlog.NewStderr()))
			}
			if gasLimit > 0 {
				opts = append(opts, pywasm.WithGasLimit(gasLimit))
			}
			if heapLimit > 0 {
				opts = append(opts, pywasm.WithHeapLimit(heapLimit))
			}

			if verbose {
				fmt.Fprintln(cmd.ErrOrStderr(), color.CyanString("run %s: compiling %d bytes", runID, len(source)))
			}

			wasmBytes, err := pywasm.Compile(cmd.Context(), source, opts...)
			if err != nil {
				return err
			}
			return writeOutput(cmd, wasmBytes, outPath, base64Out)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the compiled module here instead of stdout")
	cmd.Flags().BoolVar(&base64Out, "base64", false, "base64-encode the output instead of writing raw bytes")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each compile stage to stderr")
	cmd.Flags().Int32Var(&gasLimit, "gas-limit", 0, "override the emitted module's gas ceiling (0 keeps the default)")
	cmd.Flags().Int32Var(&heapLimit, "heap-limit", 0, "override the emitted module's heap ceiling in bytes (0 keeps the default)")
	return cmd
}

func writeOutput(cmd *cobra.Command, wasmBytes []byte, outPath string, base64Out bool) error {
	payload := wasmBytes
	if base64Out {
		payload = []byte(base64.StdEncoding.EncodeToString(wasmBytes))
	}

	if outPath == "" {
		_, err := cmd.OutOrStdout().Write(payload)
		return err
	}
	return os.WriteFile(outPath, payload, outFileMode)
}

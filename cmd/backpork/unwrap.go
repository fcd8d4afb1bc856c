package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Nazky/Auto-Backpork/internal/domain-adapters/codec"
	"github.com/Nazky/Auto-Backpork/internal/domain-adapters/gateways"
	"github.com/Nazky/Auto-Backpork/internal/domain/interfaces"
)

var unwrapOutput string

var unwrapCmd = &cobra.Command{
	Use:   "unwrap <container>",
	Short: "Extract the raw executable from a container",
	Long: `Unwrap parses a container, reassembles the executable image from its
segments and writes it out unmodified. Without --output the result lands in
a "decrypted" directory next to the input, which later pipeline runs skip.`,
	Args: cobra.ExactArgs(1),
	RunE: runUnwrap,
}

func init() {
	rootCmd.AddCommand(unwrapCmd)
	unwrapCmd.Flags().StringVarP(&unwrapOutput, "output", "o", "", "Output path for the raw executable")
}

func runUnwrap(_ *cobra.Command, args []string) error {
	input := args[0]
	//nolint:gosec // G304: input path is a CLI argument
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	img, identity, err := codec.NewCodec(gateways.NewPlaintextUnlocker()).Unwrap(data)
	if err != nil {
		return err
	}

	out := unwrapOutput
	if out == "" {
		out = filepath.Join(filepath.Dir(input), "decrypted", filepath.Base(input))
	}
	if err := gateways.NewAtomicFileWriter().Write(out, img.Raw, false); err != nil {
		return err
	}

	logger := newLogger()
	logger.Info("container unwrapped",
		interfaces.F("input", input),
		interfaces.F("output", out),
		interfaces.F("paid", fmt.Sprintf("0x%016X", identity.Paid)),
		interfaces.F("ptype", fmt.Sprintf("0x%X", uint64(identity.PType))),
		interfaces.F("sdk", fmt.Sprintf("0x%08X", img.SdkVersion())))
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nazky/Auto-Backpork/internal/domain-adapters/codec"
	"github.com/Nazky/Auto-Backpork/internal/domain-adapters/gateways"
	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"github.com/Nazky/Auto-Backpork/internal/domain/services"
)

var (
	signOutput  string
	signSdkPair int
	signPaid    string
	signPtype   string
)

var signCmd = &cobra.Command{
	Use:   "sign <executable>",
	Short: "Wrap a raw executable under a forged identity",
	Long: `Sign wraps an already-unwrapped executable back into a container
carrying a forged identity. The executable bytes are not patched; use the
process command for the full downgrade pipeline.`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVarP(&signOutput, "output", "o", "", "Output path for the signed container (default: input + .self)")
	signCmd.Flags().IntVar(&signSdkPair, "sdk-pair", entities.DefaultSdkPair, "SDK pair id stamped into the identity")
	signCmd.Flags().StringVar(&signPaid, "paid", fmt.Sprintf("0x%016X", entities.DefaultPaid), "Authorization id to stamp (decimal or 0x hex)")
	signCmd.Flags().StringVar(&signPtype, "ptype", "fake", "Program type to stamp")
}

func runSign(_ *cobra.Command, args []string) error {
	input := args[0]

	paid, err := parsePaid(signPaid)
	if err != nil {
		return err
	}
	ptype, err := entities.ParseProgramType(signPtype)
	if err != nil {
		return err
	}

	//nolint:gosec // G304: input path is a CLI argument
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	img, err := codec.ParseExecutable(data)
	if err != nil {
		return err
	}

	signer := services.NewFakeSigner(services.NewSdkVersionTable(), codec.NewCodec(nil))
	out, err := signer.Sign(img, signSdkPair, paid, ptype)
	if err != nil {
		return err
	}

	target := signOutput
	if target == "" {
		target = input + ".self"
	}
	return gateways.NewAtomicFileWriter().Write(target, out, false)
}

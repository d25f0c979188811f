// webpdump inspects and decodes lossless WebP files.
package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nor-s/thorvg/pkg/logging"
	"github.com/Nor-s/thorvg/pkg/webp"
	"github.com/Nor-s/thorvg/pkg/webp/vp8l"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "webpdump",
		Short:        "Inspect and decode lossless WebP files",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(infoCommand(), decodeCommand())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Print container and bitstream features",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := webp.ParseFeatures(data)
			if err != nil {
				return err
			}
			format := "lossy (VP8)"
			if f.Format == webp.FormatLossless {
				format = "lossless (VP8L)"
			}
			fmt.Printf("dimensions: %d x %d\n", f.Width, f.Height)
			fmt.Printf("format:     %s\n", format)
			fmt.Printf("alpha:      %v\n", f.HasAlpha)
			fmt.Printf("animation:  %v\n", f.HasAnimation)
			return nil
		},
	}
}

func decodeCommand() *cobra.Command {
	var (
		output string
		crop   []int
		scale  []int
	)
	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Decode a lossless WebP file to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := &vp8l.OutputBuffer{Colorspace: vp8l.ModeRGBA}
			if len(crop) > 0 {
				if len(crop) != 4 {
					return fmt.Errorf("--crop wants x,y,width,height")
				}
				out.UseCropping = true
				out.CropLeft, out.CropTop = crop[0], crop[1]
				out.CropWidth, out.CropHeight = crop[2], crop[3]
			}
			if len(scale) > 0 {
				if len(scale) != 2 {
					return fmt.Errorf("--scale wants width,height")
				}
				out.UseScaling = true
				out.ScaledWidth, out.ScaledHeight = scale[0], scale[1]
			}
			if err := webp.DecodeInto(data, out); err != nil {
				return err
			}
			img := &image.NRGBA{
				Pix:    out.Pixels,
				Stride: out.Stride,
				Rect:   image.Rect(0, 0, out.Width, out.Height),
			}
			dst, err := os.Create(output)
			if err != nil {
				return err
			}
			defer dst.Close()
			if err := png.Encode(dst, img); err != nil {
				return err
			}
			logging.Info().
				Str("input", args[0]).
				Str("output", output).
				Msg("decoded image written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "out.png", "destination PNG file")
	cmd.Flags().IntSliceVar(&crop, "crop", nil, "crop window as x,y,width,height")
	cmd.Flags().IntSliceVar(&scale, "scale", nil, "scaled output size as width,height")
	return cmd
}

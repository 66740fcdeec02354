package main

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/urfave/cli/v2"

	"github.com/kitgore/lyrictype-sub002/cmd/art-worker/worker"
	"github.com/kitgore/lyrictype-sub002/common/cas"
	"github.com/kitgore/lyrictype-sub002/common/models"
)

func main() {
	app := cli.NewApp()

	app.Name = "artctl"
	app.Usage = "encode and inspect processed image artifacts"
	app.Version = "1.0.0"

	app.Commands = []*cli.Command{
		{
			Name:      "encode",
			Usage:     "Encode a local image file into a packed artifact",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "mode",
					Value: models.ModeGrayscale,
					Usage: "pixel transform, grayscale or binary",
				},
				&cli.IntFlag{
					Name:  "size",
					Usage: "bound the longer output edge, 0 keeps native resolution",
				},
				&cli.StringFlag{
					Name:  "out",
					Usage: "write the artifact JSON to a file instead of stdout",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				f, err := os.Open(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer f.Close()

				src, _, err := image.Decode(f)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				resp, err := worker.Encode(src, c.String("mode"), c.Int("size"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				body, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				if out := c.String("out"); out != "" {
					if err := os.WriteFile(out, body, 0o644); err != nil {
						return cli.NewExitError(err, 1)
					}
				} else {
					fmt.Println(string(body))
				}

				fmt.Fprintf(os.Stderr, "%dx%d version=%s packed=%dB compressed=%dB ratio=%.2f\n",
					resp.Width, resp.Height, resp.ProcessingVersion,
					resp.Stats.PackedBytes, resp.Stats.CompressedBytes, resp.Stats.CompressionRatio)

				return nil
			},
		},
		{
			Name:      "address",
			Usage:     "Print the content address derived from a source URL",
			ArgsUsage: "URL",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				addr := cas.Address(c.Args().First())
				if addr == "" {
					return cli.NewExitError("empty URL has no address", 1)
				}

				fmt.Println(addr)
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

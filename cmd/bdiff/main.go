package main

import (
	"os"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	bdiff "github.com/unity-genesis/bdiff-go"
)

func main() {
	app := cli.NewApp()
	app.Name = "bdiff"
	app.Usage = "block-based binary signature, delta and patch tool"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.Bool("debug") {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "signature",
			Aliases:   []string{"sig"},
			Usage:     "generate the signature of a basis file",
			ArgsUsage: "BASIS SIGFILE",
			Flags: []cli.Flag{
				cli.UintFlag{
					Name:  "block-size, b",
					Usage: "block size in bytes",
					Value: uint(bdiff.DefaultBlockSize),
				},
			},
			Action: signatureCmd,
		},
		{
			Name:      "delta",
			Usage:     "generate a delta from a signature and a new file",
			ArgsUsage: "SIGFILE NEWFILE DELTAFILE",
			Action:    deltaCmd,
		},
		{
			Name:      "patch",
			Usage:     "reconstruct a new file from a basis file and a delta",
			ArgsUsage: "BASIS DELTAFILE NEWFILE",
			Action:    patchCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func signatureCmd(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.NewExitError("usage: bdiff signature BASIS SIGFILE", 1)
	}
	basis, err := os.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer basis.Close()

	sigFile, err := os.Create(c.Args().Get(1))
	if err != nil {
		return err
	}

	if err := bdiff.Signature(basis, sigFile, uint32(c.Uint("block-size"))); err != nil {
		sigFile.Close()
		return err
	}
	return closeAndReport(sigFile, "signature")
}

func deltaCmd(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.NewExitError("usage: bdiff delta SIGFILE NEWFILE DELTAFILE", 1)
	}
	sigFile, err := os.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer sigFile.Close()

	newFile, err := os.Open(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer newFile.Close()

	deltaFile, err := os.Create(c.Args().Get(2))
	if err != nil {
		return err
	}

	if err := bdiff.DeltaR(sigFile, newFile, deltaFile); err != nil {
		deltaFile.Close()
		return err
	}
	return closeAndReport(deltaFile, "delta")
}

func patchCmd(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.NewExitError("usage: bdiff patch BASIS DELTAFILE NEWFILE", 1)
	}
	basis, err := os.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer basis.Close()

	deltaFile, err := os.Open(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer deltaFile.Close()

	newFile, err := os.Create(c.Args().Get(2))
	if err != nil {
		return err
	}

	if err := bdiff.Patch(basis, deltaFile, newFile); err != nil {
		newFile.Close()
		os.Remove(newFile.Name())
		return err
	}
	return closeAndReport(newFile, "patched file")
}

func closeAndReport(f *os.File, what string) error {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"file": f.Name(),
		"size": humanize.Bytes(uint64(info.Size())),
	}).Infof("wrote %s", what)
	return nil
}

// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command fitsio-merge appends the extension HDUs of N input files after
// a single shared primary HDU, taken from the first input file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	fits "github.com/heliosphere-go/fitsio"
)

func main() {
	flag.Usage = func() {
		const msg = `Usage: fitsio-merge -o outfname file1 file2 [file3 ...]

Merge the extension HDUs of several FITS files after a single
shared primary HDU (taken from the first input file).
`
		fmt.Fprintf(os.Stderr, "%v\n", msg)
		flag.PrintDefaults()
	}

	outfname := flag.String("o", "out.fits", "path to merged FITS file")
	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}

	if _, err := os.Stat(*outfname); err == nil {
		if err := os.Remove(*outfname); err != nil {
			log.Fatalf("could not remove existing %q: %v", *outfname, err)
		}
	}

	start := time.Now()
	defer func() {
		fmt.Printf("::: timing: %v\n", time.Since(start))
	}()

	fmt.Printf("::: creating merged file [%s]...\n", *outfname)
	out, err := fits.Open(*outfname, fits.WriteMode)
	if err != nil {
		log.Fatalf("could not create %q: %v", *outfname, err)
	}

	infiles := flag.Args()
	fmt.Printf("::: merging [%d] FITS files...\n", len(infiles))
	for i, fname := range infiles {
		in, err := fits.Open(fname, fits.ReadMode)
		if err != nil {
			log.Fatalf("could not open %q: %v", fname, err)
		}

		for ihdu := 0; ; ihdu++ {
			hdu, err := in.Advance()
			if err != nil {
				log.Fatalf("could not read HDU #%d of %q: %v", ihdu, fname, err)
			}
			if hdu == nil {
				break
			}
			if hdu.Kind() == fits.PrimaryImage {
				if i == 0 {
					fmt.Printf("::: copying primary HDU from [%s]\n", fname)
					if err := fits.CopyHDU(out, in); err != nil {
						log.Fatalf("could not copy primary HDU: %v", err)
					}
				}
				continue
			}
			fmt.Printf("::: copying extension #%d from [%s]\n", ihdu, fname)
			if err := fits.CopyHDU(out, in); err != nil {
				log.Fatalf("could not copy extension HDU: %v", err)
			}
		}

		if err := in.Close(); err != nil {
			log.Fatalf("could not close %q: %v", fname, err)
		}
	}
	fmt.Printf("::: merging [%d] FITS files... [done]\n", len(infiles))

	if err := out.Close(); err != nil {
		log.Fatalf("could not close %q: %v", *outfname, err)
	}
}

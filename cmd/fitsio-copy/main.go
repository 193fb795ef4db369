// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command fitsio-copy stream-copies a FITS file HDU by HDU, without
// materializing any HDU's data payload in memory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	fits "github.com/heliosphere-go/fitsio"
)

func main() {
	flag.Usage = func() {
		const msg = `Usage: fitsio-copy inputfile outputfile

Copy a FITS file HDU by HDU, streaming each data stride straight
through without loading a whole HDU's payload into memory.

Examples:

fitsio-copy in.fits out.fits   (simple file copy)
fitsio-copy - -                (stdin to stdout)

Note that it may be necessary to enclose the input file name
in single quote characters on the Unix command line.
`
		fmt.Fprintf(os.Stderr, "%v\n", msg)
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	ifname := flag.Arg(0)
	ofname := flag.Arg(1)

	var in *fits.FitsFile
	var err error
	if ifname == "-" {
		in, err = fits.Open(os.Stdin, fits.ReadMode)
	} else {
		in, err = fits.Open(ifname, fits.ReadMode)
	}
	if err != nil {
		log.Fatalf("could not open input FITS stream: %v", err)
	}
	defer in.Close()

	var out *fits.FitsFile
	if ofname == "-" {
		out, err = fits.Open(os.Stdout, fits.WriteMode)
	} else {
		out, err = fits.Open(ofname, fits.WriteMode)
	}
	if err != nil {
		log.Fatalf("could not open output FITS stream: %v", err)
	}

	for {
		hdu, err := in.Advance()
		if err != nil {
			log.Fatalf("could not read HDU: %v", err)
		}
		if hdu == nil {
			break
		}
		if err := fits.CopyHDU(out, in); err != nil {
			log.Fatalf("could not copy HDU: %v", err)
		}
	}

	if err := out.Close(); err != nil {
		log.Fatalf("could not close output FITS file: %v", err)
	}
}

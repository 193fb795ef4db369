// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command fitsio-listhead lists the header cards of every HDU in a FITS
// file, or a single one when -ext is given.
package main

import (
	"flag"
	"fmt"
	"os"

	fits "github.com/heliosphere-go/fitsio"
)

func main() {
	os.Exit(run())
}

func run() int {
	ext := flag.Int("ext", -1, "HDU index to list (default: all)")

	flag.Usage = func() {
		const msg = `Usage: fitsio-listhead [-ext N] filename

List the FITS header keywords in a single extension, or, if
-ext is not given, list the keywords in all the extensions.

Examples:

   fitsio-listhead file.fits          - list every header in the file
   fitsio-listhead -ext 0 file.fits   - list primary array header
   fitsio-listhead -ext 2 file.fits   - list header of 2nd extension
`
		fmt.Fprintf(os.Stderr, "%v\n", msg)
		flag.PrintDefaults()
	}

	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return 1
	}

	fname := flag.Arg(0)
	f, err := fits.Open(fname, fits.ReadMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "**error** %v\n", err)
		return 1
	}
	defer f.Close()

	for i := 0; ; i++ {
		hdu, err := f.Advance()
		if err != nil {
			fmt.Fprintf(os.Stderr, "**error** %v\n", err)
			return 1
		}
		if hdu == nil {
			break
		}
		if *ext >= 0 && i != *ext {
			continue
		}

		fmt.Printf("Header listing for HDU #%d (%s):\n", i, hdu.Kind())
		hdr := hdu.Header()
		for k := 0; k < hdr.Len(); k++ {
			card := hdr.At(k)
			fmt.Printf("%-8s= %-29v / %s\n", card.Name, card.Value, card.Comment)
		}
		fmt.Printf("END\n\n")

		if *ext >= 0 {
			break
		}
	}

	return 0
}

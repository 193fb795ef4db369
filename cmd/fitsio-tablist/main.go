// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command fitsio-tablist dumps the rows of every binary table HDU in a
// FITS file, row stride by row stride.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	fits "github.com/heliosphere-go/fitsio"
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = func() {
		const msg = `Usage: fitsio-tablist filename

List the contents of every binary table extension in a FITS file.

Examples:
  fitsio-tablist tab.fits   - list every binary table HDU
`
		fmt.Fprintf(os.Stderr, "%v\n", msg)
		flag.PrintDefaults()
	}

	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return 1
	}

	f, err := fits.Open(flag.Arg(0), fits.ReadMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer f.Close()

	for i := 0; ; i++ {
		hdu, err := f.Advance()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if hdu == nil {
			break
		}
		if hdu.Kind() != fits.BinaryTable {
			continue
		}

		cols := hdu.Columns()
		maxname := 10
		for _, col := range cols {
			if len(col.Name) > maxname {
				maxname = len(col.Name)
			}
		}
		rowfmt := fmt.Sprintf("%%-%ds | %%v\n", maxname)
		hdrline := strings.Repeat("=", 80-15)

		nrows := hdu.TotalStrides()
		for irow := int64(0); irow < nrows; irow++ {
			stride, err := f.ReadStride()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
			values, err := hdu.DecodeRow(stride)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: (row=%d) %v\n", irow, err)
				return 1
			}
			fmt.Printf("== %05d/%05d %s\n", irow, nrows, hdrline)
			for i, col := range cols {
				name := col.Name
				if name == "" {
					name = fmt.Sprintf("col%d", i+1)
				}
				fmt.Printf(rowfmt, name, values[i])
			}
		}
	}

	return 0
}

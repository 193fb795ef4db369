// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"reflect"
	"testing"
)

func TestParseTFORMScalar(t *testing.T) {
	tests := []struct {
		form       string
		code       byte
		repeat     int
		totalBytes int
	}{
		{"1J", TypeInt32, 1, 4},
		{"E", TypeFloat32, 1, 4},
		{"16A", TypeChar, 16, 16},
		{"1D", TypeFloat64, 1, 8},
		{"3X", TypeBit, 3, 1},
		{"1M", TypeComplex128, 1, 16},
	}
	for _, tt := range tests {
		dt, err := ParseTFORM(tt.form)
		if err != nil {
			t.Fatalf("ParseTFORM(%q): %v", tt.form, err)
		}
		if dt.Code != tt.code || dt.Repeat != tt.repeat || dt.TotalBytes != tt.totalBytes {
			t.Errorf("ParseTFORM(%q) = %+v, want code=%c repeat=%d total=%d", tt.form, dt, tt.code, tt.repeat, tt.totalBytes)
		}
	}
}

func TestParseTFORMRejectsVariableLength(t *testing.T) {
	for _, form := range []string{"1PJ", "1QJ"} {
		_, err := ParseTFORM(form)
		if err == nil {
			t.Fatalf("ParseTFORM(%q) should be rejected as unsupported", form)
		}
	}
}

func TestParseTFORMRejectsUnknownCode(t *testing.T) {
	if _, err := ParseTFORM("1Z"); err == nil {
		t.Fatalf("ParseTFORM with an unknown type code should fail")
	}
}

func TestParseTFORMRejectsMissingCode(t *testing.T) {
	if _, err := ParseTFORM("123"); err == nil {
		t.Fatalf("ParseTFORM with no type code should fail")
	}
}

func TestDataTypeString(t *testing.T) {
	dt, err := ParseTFORM("8J")
	if err != nil {
		t.Fatalf("ParseTFORM: %v", err)
	}
	if got := dt.String(); got != "8J" {
		t.Errorf("String() = %q, want 8J", got)
	}
	dt1, err := ParseTFORM("J")
	if err != nil {
		t.Fatalf("ParseTFORM: %v", err)
	}
	if got := dt1.String(); got != "J" {
		t.Errorf("String() for a bare repeat-1 form = %q, want J", got)
	}
}

func TestFormFromGoType(t *testing.T) {
	tests := []struct {
		rt   reflect.Type
		want string
	}{
		{reflect.TypeOf(int32(0)), "J"},
		{reflect.TypeOf(float64(0)), "D"},
		{reflect.TypeOf(false), "L"},
		{reflect.TypeOf([4]int32{}), "4J"},
	}
	for _, tt := range tests {
		got, err := formFromGoType(tt.rt, 0)
		if err != nil {
			t.Fatalf("formFromGoType(%s): %v", tt.rt, err)
		}
		if got != tt.want {
			t.Errorf("formFromGoType(%s) = %q, want %q", tt.rt, got, tt.want)
		}
	}
}

func TestFormFromGoTypeString(t *testing.T) {
	got, err := formFromGoType(reflect.TypeOf(""), 16)
	if err != nil {
		t.Fatalf("formFromGoType: %v", err)
	}
	if got != "16A" {
		t.Errorf("formFromGoType(string, 16) = %q, want 16A", got)
	}
}

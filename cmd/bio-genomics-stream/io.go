package main

// This file reads variants from JSON-lines files and writes merged variants as
// TSV. Paths ending in ".gz" are gzip compressed.

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/genomics/genomicspb"
	"github.com/grailbio/genomics/variantmerge"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// readVariants reads one JSON-encoded genomicspb.Variant per line from path.
// Variants without an ID get one derived from their content, and variants
// without a variant set get defaultSet.
func readVariants(ctx context.Context, path, defaultSet string) (_ []*genomicspb.Variant, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = errors.Wrapf(e, "close %s", path)
		}
	}()
	var r io.Reader = in.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: gzip", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	dec := json.NewDecoder(bufio.NewReader(r))
	var variants []*genomicspb.Variant
	for {
		v := new(genomicspb.Variant)
		if err := dec.Decode(v); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "%s: record %d", path, len(variants)+1)
		}
		if v.VariantSetID == "" {
			v.VariantSetID = defaultSet
		}
		if v.ID == "" {
			v.ID = variantID(v)
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// variantID fingerprints the fields that identify a variant record.
func variantID(v *genomicspb.Variant) string {
	var b strings.Builder
	b.WriteString(v.ReferenceName)
	fmt.Fprintf(&b, "\x00%d\x00%d\x00%s", v.Start, v.End, v.ReferenceBases)
	for _, alt := range v.AlternateBases {
		b.WriteString("\x00")
		b.WriteString(alt)
	}
	for _, c := range v.Calls {
		b.WriteString("\x01")
		b.WriteString(c.CallSetName)
	}
	return fmt.Sprintf("%016x", farm.Fingerprint64([]byte(b.String())))
}

// variantWriter writes variants as TSV.
type variantWriter struct {
	w      *tsv.Writer
	closer func() error
}

const tsvHeader = "#chrom\tstart\tend\tref\talts\tcalls\toverlapping_callsets"

func newVariantWriter(w io.Writer) *variantWriter {
	vw := &variantWriter{w: tsv.NewWriter(w), closer: func() error { return nil }}
	vw.w.WriteString(tsvHeader)
	vw.w.EndLine() // nolint: errcheck
	return vw
}

// createVariantWriter creates a writer for path. An empty path or "-" writes
// to stdout.
func createVariantWriter(ctx context.Context, path string) (*variantWriter, error) {
	if path == "" || path == "-" {
		return newVariantWriter(os.Stdout), nil
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		vw := newVariantWriter(out.Writer(ctx))
		vw.closer = func() error { return out.Close(ctx) }
		return vw, nil
	}
	gz := gzip.NewWriter(out.Writer(ctx))
	vw := newVariantWriter(gz)
	vw.closer = func() error {
		err := gz.Close()
		if e := out.Close(ctx); e != nil && err == nil {
			err = e
		}
		return err
	}
	return vw, nil
}

func field(values []string) string {
	if len(values) == 0 {
		return "."
	}
	return strings.Join(values, ",")
}

// Write appends one line for v.
func (w *variantWriter) Write(v *genomicspb.Variant) error {
	calls := make([]string, len(v.Calls))
	for i, c := range v.Calls {
		gt := make([]string, len(c.Genotype))
		for j, g := range c.Genotype {
			gt[j] = strconv.Itoa(int(g))
		}
		calls[i] = c.CallSetName + "=" + strings.Join(gt, "/")
	}
	ref := v.ReferenceBases
	if ref == "" {
		ref = "."
	}
	w.w.WriteString(v.ReferenceName)
	w.w.WriteString(strconv.FormatInt(v.Start, 10))
	w.w.WriteString(strconv.FormatInt(v.End, 10))
	w.w.WriteString(ref)
	w.w.WriteString(field(v.AlternateBases))
	w.w.WriteString(field(calls))
	w.w.WriteString(field(v.Info[variantmerge.OverlappingCallSetsKey]))
	return w.w.EndLine()
}

// Close flushes the output and closes the underlying file.
func (w *variantWriter) Close() error {
	err := w.w.Flush()
	if e := w.closer(); e != nil && err == nil {
		err = e
	}
	return err
}

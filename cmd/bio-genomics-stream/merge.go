package main

import (
	"context"

	"github.com/grailbio/base/log"
	"github.com/grailbio/genomics/genomicspb"
	"github.com/grailbio/genomics/variantmerge"
)

// mergeFile merges the variants of inPath window by window and writes the
// result to outPath.
func mergeFile(ctx context.Context, inPath, outPath string, strategy variantmerge.Strategy, window int64) error {
	variants, err := readVariants(ctx, inPath, "")
	if err != nil {
		return err
	}
	w, err := createVariantWriter(ctx, outPath)
	if err != nil {
		return err
	}
	windows := variantmerge.Windows(variants, window)
	n, snps := 0, 0
	variantmerge.MergeWindows(strategy, windows, func(v *genomicspb.Variant) {
		if err == nil {
			err = w.Write(v)
			n++
			if variantmerge.IsSNP(v) {
				snps++
			}
		}
	})
	if e := w.Close(); e != nil && err == nil {
		err = e
	}
	if err == nil {
		log.Printf("%s: merged %d records in %d windows into %d variants (%d SNPs)", inPath, len(variants), len(windows), n, snps)
	}
	return err
}

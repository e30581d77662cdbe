/*
bio-genomics-stream reads variants from a genomics streaming server, or from
a local JSON-lines file, and merges non-variant segments and same-site
variants window by window.

	bio-genomics-stream merge -strategy MERGE_ALL_VARIANTS_AT_SAME_SITE -window 1000 -out merged.tsv.gz variants.jsonl.gz
	bio-genomics-stream stream -addr host:8980 -variantset vs1 -ref chr1 -start 0 -end 1000000 -out chr1.tsv
	bio-genomics-stream serve -addr :8980 -variantset vs1 variants.jsonl

Output is TSV with one merged variant per line:

	#chrom  start  end  ref  alts  calls  overlapping_callsets

"calls" is a comma-separated list of callset=genotype, with genotype values
joined by '/'. Empty fields are written as ".".
*/
package main

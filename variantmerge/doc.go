/*Package variantmerge reconciles non-variant segments with variant calls.

  A variant set produced from gVCF-style data holds two kinds of records: true
  variants, and non-variant segments (blocks) that record a run of
  reference-matching coverage for one sample. Downstream consumers usually want
  one record per variant site carrying the calls of every sample, including
  the samples whose coverage at that site is only described by a block.

  Two Strategies are provided. Both take the records of one coordinate window,
  sort them with Compare, and walk them once:

    MergeNonVariantSegments  folds the calls of each block into every variant
                             whose start the block covers.
    MergeAllVariantsAtSameSite additionally combines the variants found at the
                             same site into one record, renumbering genotypes to
                             the combined alternate list, and records which other
                             call sets overlap each emitted variant in the
                             "overlappingCallsets" info field.

  Records that start before the window are used for context only and are not
  emitted; the caller is expected to pass every record overlapping the window.
  The output depends only on the set of input records and the window start.
*/
package variantmerge

package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/genomics/stream"
	"github.com/grailbio/genomics/transport"
	"github.com/grailbio/genomics/variantmerge"
	"google.golang.org/grpc"
	"v.io/x/lib/cmdline"
)

const strategyHelp = `Merge strategy, one of MERGE_NON_VARIANT_SEGMENTS or
MERGE_ALL_VARIANTS_AT_SAME_SITE. MERGE_NON_VARIANT_SEGMENTS attaches the calls
of the non-variant segments overlapping a variant to that variant.
MERGE_ALL_VARIANTS_AT_SAME_SITE additionally merges the variants that share a
reference name, start and reference bases into one, renumbering genotypes.`

func newCmdMerge() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "merge",
		Short:    "Merge the variants of a JSON-lines file",
		ArgsName: "path",
	}
	strategyFlag := cmd.Flags.String("strategy", variantmerge.MergeAllVariantsAtSameSiteName, strategyHelp)
	windowFlag := cmd.Flags.Int64("window", 1000, "Window size in bases")
	outFlag := cmd.Flags.String("out", "", "Output TSV path; compressed if it ends in .gz. Defaults to stdout")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("merge takes one pathname argument, but got %v", argv)
		}
		if *windowFlag <= 0 {
			return fmt.Errorf("-window must be positive, got %d", *windowFlag)
		}
		strategy, err := variantmerge.ParseStrategy(*strategyFlag)
		if err != nil {
			return err
		}
		return mergeFile(vcontext.Background(), argv[0], *outFlag, strategy, *windowFlag)
	})
	return cmd
}

func newCmdStream() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "stream",
		Short: "Stream variants from a server and merge them",
	}
	addrFlag := cmd.Flags.String("addr", "localhost:8980", "Server address")
	variantSetFlag := cmd.Flags.String("variantset", "", "Variant set ID")
	refFlag := cmd.Flags.String("ref", "", "Reference name")
	callSetsFlag := cmd.Flags.String("callsets", "", "Comma-separated call set IDs to fetch. By default all call sets are fetched")
	startFlag := cmd.Flags.Int64("start", 0, "0-based start of the region")
	endFlag := cmd.Flags.Int64("end", 0, "0-based, exclusive end of the region")
	windowFlag := cmd.Flags.Int64("window", 100000, "Bases fetched and merged by one stream")
	strategyFlag := cmd.Flags.String("strategy", variantmerge.MergeAllVariantsAtSameSiteName, strategyHelp+`
If "none", records are written as received.`)
	boundaryFlag := cmd.Flags.String("boundary", "", `Shard boundary, "strict" or "overlaps". Strict keeps the records
starting in each window only. Defaults to overlaps when merging, since the
strategies need the segments spanning into a window, and to strict otherwise.`)
	parallelismFlag := cmd.Flags.Int("parallelism", runtime.NumCPU(), "Number of windows streamed concurrently")
	retryFlag := cmd.Flags.Duration("max-retry-time", stream.DefaultBackoffOpts.MaxElapsedTime, "Retry budget of one stream, reset whenever the stream makes progress")
	compressFlag := cmd.Flags.Bool("compress", false, "Request snappy-compressed responses")
	metricsFlag := cmd.Flags.String("metrics-addr", "", "If set, export stream metrics on this address")
	outFlag := cmd.Flags.String("out", "", "Output TSV path; compressed if it ends in .gz. Defaults to stdout")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("stream takes no arguments, but got %v", argv)
		}
		if *variantSetFlag == "" || *refFlag == "" {
			return fmt.Errorf("-variantset and -ref are required")
		}
		if *endFlag <= *startFlag {
			return fmt.Errorf("empty region [%d,%d)", *startFlag, *endFlag)
		}
		opts := streamOpts{
			variantSetID:  *variantSetFlag,
			referenceName: *refFlag,
			start:         *startFlag,
			end:           *endFlag,
			window:        *windowFlag,
			boundary:      stream.Strict,
			backoff:       stream.BackoffOpts{MaxElapsedTime: *retryFlag},
			parallelism:   *parallelismFlag,
		}
		if *callSetsFlag != "" {
			opts.callSetIDs = strings.Split(*callSetsFlag, ",")
		}
		if *strategyFlag != "none" {
			var err error
			if opts.strategy, err = variantmerge.ParseStrategy(*strategyFlag); err != nil {
				return err
			}
			opts.boundary = stream.Overlaps
		}
		if *boundaryFlag != "" {
			var err error
			if opts.boundary, err = stream.ParseShardBoundary(*boundaryFlag); err != nil {
				return err
			}
		}
		if err := serveMetrics(*metricsFlag); err != nil {
			return err
		}
		var dialOpts []grpc.DialOption
		if *compressFlag {
			dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(grpc.UseCompressor(transport.SnappyCompressor)))
		}
		conn, err := transport.Dial(*addrFlag, dialOpts...)
		if err != nil {
			return err
		}
		defer conn.Close() // nolint: errcheck

		ctx := vcontext.Background()
		w, err := createVariantWriter(ctx, *outFlag)
		if err != nil {
			return err
		}
		err = streamVariants(ctx, conn, opts, w)
		if e := w.Close(); e != nil && err == nil {
			err = e
		}
		return err
	})
	return cmd
}

func newCmdServe() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "serve",
		Short:    "Serve the variants of JSON-lines files over the streaming service",
		ArgsName: "path...",
	}
	addrFlag := cmd.Flags.String("addr", ":8980", "Listen address")
	variantSetFlag := cmd.Flags.String("variantset", "default", "Variant set ID of the records that do not name one")
	envelopeFlag := cmd.Flags.Int("envelope-size", transport.DefaultEnvelopeSize, "Records per response envelope")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("serve takes one or more pathname arguments")
		}
		b, err := newBackend(vcontext.Background(), argv, *variantSetFlag, *envelopeFlag)
		if err != nil {
			return err
		}
		return serve(*addrFlag, b)
	})
	return cmd
}

func main() {
	shutdown := grail.Init()
	cmdline.HideGlobalFlagsExcept()
	root := &cmdline.Command{
		Name:     "bio-genomics-stream",
		Short:    "Stream and merge genomic variants",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdMerge(),
			newCmdStream(),
			newCmdServe(),
		},
	}
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(root, env, os.Args[1:])
	shutdown()
	os.Exit(cmdline.ExitCode(err, env.Stderr))
}

package main

import (
	"context"
	"net"
	"net/http"

	"github.com/grailbio/base/log"
	"github.com/grailbio/genomics/stream"
	"github.com/grailbio/genomics/transport"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

// newBackend loads the variants of paths into an in-memory backend.
func newBackend(ctx context.Context, paths []string, variantSetID string, envelopeSize int) (*transport.MemBackend, error) {
	b := transport.NewMemBackend()
	b.EnvelopeSize = envelopeSize
	for _, path := range paths {
		variants, err := readVariants(ctx, path, variantSetID)
		if err != nil {
			return nil, err
		}
		b.AddVariants(variants...)
		log.Printf("%s: loaded %d variants", path, len(variants))
	}
	return b, nil
}

// serve answers streaming requests on addr from b until the listener fails.
func serve(addr string, b *transport.MemBackend) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}
	s := grpc.NewServer()
	transport.RegisterStreamingServer(s, b)
	log.Printf("serving on %s", lis.Addr())
	return s.Serve(lis)
}

// serveMetrics exports the stream counters on addr at /metrics. It returns
// immediately; the listener runs until the process exits.
func serveMetrics(addr string) error {
	if addr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	for _, c := range stream.Collectors() {
		if err := reg.Register(c); err != nil {
			return errors.Wrap(err, "register metrics")
		}
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.Serve(lis, mux); err != nil {
			log.Error.Printf("metrics server on %s: %v", addr, err)
		}
	}()
	log.Printf("metrics on http://%s/metrics", lis.Addr())
	return nil
}

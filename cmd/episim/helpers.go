package main

import (
	"net/http"
	"sort"
	"time"

	"github.com/san-kum/episim/internal/api"
	"github.com/san-kum/episim/internal/experiment"
)

func newHTTPServer(addr string, exp *experiment.Experiment) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(exp).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilSafeWithoutRegisterer(t *testing.T) {
	m := NewCatalogMetrics(nil)
	m.IncResolve("created")
	m.IncConflictRetry()
	m.IncImportItem("failed")
	m.ObserveImportDuration("csv", time.Second)

	var empty *CatalogMetrics
	empty.IncResolve("created")
}

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCatalogMetrics(reg)

	m.IncResolve("created")
	m.IncResolve("created")
	m.IncResolve("linked")
	m.IncConflictRetry()
	m.IncImportItem("")

	if got := testutil.ToFloat64(m.resolves.WithLabelValues("created")); got != 2 {
		t.Fatalf("expected 2 created resolves, got %v", got)
	}
	if got := testutil.ToFloat64(m.resolves.WithLabelValues("linked")); got != 1 {
		t.Fatalf("expected 1 linked resolve, got %v", got)
	}
	if got := testutil.ToFloat64(m.conflictRetries); got != 1 {
		t.Fatalf("expected 1 conflict retry, got %v", got)
	}
	if got := testutil.ToFloat64(m.importItems.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty result to normalize to unknown, got %v", got)
	}
}

func TestImportItemHelpNamesEmittedResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCatalogMetrics(reg)

	// The result labels the importer emits; the help text must list these.
	for _, result := range []string{"created", "linked", "failed"} {
		m.IncImportItem(result)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "catalog_import_items_total" {
			continue
		}
		help := mf.GetHelp()
		for _, result := range []string{"created", "linked", "failed"} {
			if !strings.Contains(help, result) {
				t.Fatalf("help %q does not mention result %q", help, result)
			}
		}
		return
	}
	t.Fatal("catalog_import_items_total not registered")
}

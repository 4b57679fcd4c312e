package main

import (
	"testing"

	"github.com/mzansiprolife/platform/internal/widget"
)

func TestCacheOrNilReturnsUntypedNil(t *testing.T) {
	var iface widget.HistoryCache = cacheOrNil(nil)
	if iface != nil {
		t.Fatalf("expected untyped nil interface for nil cache pointer")
	}
}

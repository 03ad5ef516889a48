package source

import (
	"context"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func noop(name string) Descriptor {
	return Descriptor{
		Name: name,
		Adapter: Func{AdapterName: name, FetchFunc: func(ctx context.Context, code, start, end string) (models.RawTable, error) {
			return models.RawTable{}, nil
		}},
	}
}

func TestRegistrySortsByPriority(t *testing.T) {
	a, b, c := noop("a"), noop("b"), noop("c")
	a.Priority, b.Priority, c.Priority = 3, 1, 2

	reg, err := NewRegistry(map[models.MarketSegment][]Descriptor{
		models.EquityDomestic: {a, b, c},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := reg.Sources(models.EquityDomestic)
	if got[0].Name != "b" || got[1].Name != "c" || got[2].Name != "a" {
		t.Fatalf("wrong order: %s %s %s", got[0].Name, got[1].Name, got[2].Name)
	}
}

func TestRegistryAppliesDefaults(t *testing.T) {
	reg, err := NewRegistry(map[models.MarketSegment][]Descriptor{
		models.EquityUS: {noop("a")},
	})
	if err != nil {
		t.Fatal(err)
	}
	d := reg.Sources(models.EquityUS)[0]
	if d.MinInterval != 500*time.Millisecond || d.Timeout != 30*time.Second {
		t.Fatalf("defaults not applied: %v %v", d.MinInterval, d.Timeout)
	}
}

func TestRegistryRejectsBadDescriptors(t *testing.T) {
	cases := map[string]map[models.MarketSegment][]Descriptor{
		"unknown segment": {models.MarketSegment("XX"): {noop("a")}},
		"unnamed":         {models.EquityUS: {noop("")}},
		"nil adapter":     {models.EquityUS: {{Name: "a"}}},
		"duplicate name":  {models.EquityUS: {noop("a"), noop("a")}},
	}
	for name, entries := range cases {
		if _, err := NewRegistry(entries); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRegistrySameNameAcrossSegments(t *testing.T) {
	// sources shared between segments keep one breaker and one rate
	// limiter, matching how they are keyed downstream
	_, err := NewRegistry(map[models.MarketSegment][]Descriptor{
		models.EquityDomestic: {noop("shared")},
		models.FundETF:        {noop("shared")},
	})
	if err != nil {
		t.Fatalf("cross-segment reuse must be allowed: %v", err)
	}
}

func TestRegistrySegmentsCanonicalOrder(t *testing.T) {
	reg, err := NewRegistry(map[models.MarketSegment][]Descriptor{
		models.FundLOF:        {noop("a")},
		models.EquityDomestic: {noop("b")},
		models.EquityHK:       {},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := reg.Segments()
	if len(got) != 2 || got[0] != models.EquityDomestic || got[1] != models.FundLOF {
		t.Fatalf("wrong segments: %v", got)
	}
}

func TestBuildRegistryCoversAllSegments(t *testing.T) {
	reg, err := BuildRegistry(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, seg := range models.AllSegments() {
		if len(reg.Sources(seg)) == 0 {
			t.Errorf("segment %s has no sources", seg)
		}
	}
	// every segment keeps a strict priority order with the richest
	// historical feed first
	if reg.Sources(models.EquityDomestic)[0].Name != "eastmoney_kline" {
		t.Error("domestic should prefer eastmoney kline")
	}
	if reg.Sources(models.EquityUS)[0].Name != "yahoo_chart" {
		t.Error("US should prefer yahoo chart")
	}
	for _, d := range reg.Sources(models.EquityDomestic) {
		if d.Name == "tencent_spot" && !d.Spot {
			t.Error("tencent_spot must be marked as a spot source")
		}
	}
}

func TestBuildRegistryAppliesOverrides(t *testing.T) {
	reg, err := BuildRegistry(nil, map[string]Override{
		"eastmoney_kline": {Disabled: true},
		"sina_daily":      {Priority: 1, MaxRetries: 5},
	})
	if err != nil {
		t.Fatal(err)
	}

	domestic := reg.Sources(models.EquityDomestic)
	for _, d := range domestic {
		if d.Name == "eastmoney_kline" {
			t.Fatal("disabled source still present")
		}
	}
	var sina *Descriptor
	for i := range domestic {
		if domestic[i].Name == "sina_daily" {
			sina = &domestic[i]
		}
	}
	if sina == nil {
		t.Fatal("sina_daily missing")
	}
	if sina.Priority != 1 || sina.MaxRetries != 5 {
		t.Fatalf("override not applied: priority=%d retries=%d", sina.Priority, sina.MaxRetries)
	}
	// untouched fields keep their built-in tuning
	if sina.MinInterval != 400*time.Millisecond {
		t.Fatalf("min interval changed: %v", sina.MinInterval)
	}
}

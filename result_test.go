package pebble

import (
	"fmt"
	"testing"

	"github.com/carrel-labs/pebble/query"
)

func sampleResult(n int) *Result[item] {
	rows := make([]item, n)
	for i := range rows {
		rows[i] = fixtureItem(i + 1)
	}
	return &Result[item]{
		Metadata: query.SearchResultMetadata{
			ResultItems:      int32(n),
			Length:           10,
			ResultTotalItems: 42,
			ResultTotalPages: 5,
			Query:            &query.SearchQuery{Length: 10},
		},
		Results: rows,
	}
}

func TestMapInto_DropsOddIndexes(t *testing.T) {
	res := sampleResult(5)
	idx := 0
	reason := "odd-index excluded"

	g := MapInto(res, func(it item) (string, bool) {
		keep := idx%2 == 0
		idx++
		return it.Name, keep
	}, &reason)

	if len(g.Results) != 3 || g.Metadata.ResultItems != 3 {
		t.Fatalf("results = %v, result_items = %d", g.Results, g.Metadata.ResultItems)
	}
	if g.Results[0] != "item-01" || g.Results[2] != "item-05" {
		t.Errorf("results = %v", g.Results)
	}
	if g.Metadata.FilterCount == nil || *g.Metadata.FilterCount != 2 {
		t.Errorf("filter_count = %v, want 2", g.Metadata.FilterCount)
	}
	if g.Metadata.FilterReason == nil || *g.Metadata.FilterReason != reason {
		t.Errorf("filter_reason = %v", g.Metadata.FilterReason)
	}
	if g.Metadata.ResultTotalItems != 42 || g.Metadata.ResultTotalPages != 5 || g.Metadata.Length != 10 {
		t.Errorf("metadata not carried over: %+v", g.Metadata)
	}

	if len(res.Results) != 5 || res.Metadata.ResultItems != 5 || res.Metadata.FilterCount != nil {
		t.Error("source result mutated")
	}
}

func TestMapResult_AccountsPerStep(t *testing.T) {
	first := MapInto(sampleResult(6), func(it item) (int64, bool) {
		return it.Age, it.ID != 6
	}, nil)
	if *first.Metadata.FilterCount != 1 || first.Metadata.FilterReason != nil {
		t.Fatalf("first step = %+v", first.Metadata)
	}

	second := "teens only"
	g := MapResult(first, func(age int64) (string, bool) {
		return fmt.Sprint(age), age < 14
	}, &second)

	if len(g.Results) != 3 || g.Metadata.ResultItems != 3 {
		t.Errorf("results = %v", g.Results)
	}
	if *g.Metadata.FilterCount != 2 {
		t.Errorf("filter_count = %d, want 2 for this step only", *g.Metadata.FilterCount)
	}
	if *g.Metadata.FilterReason != second {
		t.Errorf("filter_reason = %q", *g.Metadata.FilterReason)
	}
	if *first.Metadata.FilterCount != 1 {
		t.Error("previous step mutated")
	}

	v, ok := g.First()
	if !ok || v != "11" {
		t.Errorf("First() = %q, %v", v, ok)
	}
}

func TestMapInto_Empty(t *testing.T) {
	g := MapInto(sampleResult(0), func(it item) (item, bool) { return it, true }, nil)
	if g.Metadata.ResultItems != 0 || *g.Metadata.FilterCount != 0 {
		t.Errorf("metadata = %+v", g.Metadata)
	}
	if _, ok := g.First(); ok {
		t.Error("First() on empty result")
	}
}

package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/iota-uz/formsync/modules/catalog/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitOK},
		{name: "configuration", err: domain.NewConfigurationError("workbook", "missing", nil), want: exitUsage},
		{name: "wrapped configuration", err: fmt.Errorf("scan: %w", domain.NewConfigurationError("data dir", "missing", nil)), want: exitUsage},
		{name: "conflict", err: &domain.PersistenceConflict{Op: "create entry", Code: "HR-001", Err: errors.New("boom")}, want: exitDBWrite},
		{name: "already coded", err: withCode(exitPartial, errors.New("partial")), want: exitPartial},
		{name: "other", err: errors.New("boom"), want: exitDB},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(classify(tc.err, exitDB)); got != tc.want {
				t.Fatalf("expected exit code %d, got %d", tc.want, got)
			}
		})
	}
}

func TestExitCode_UncodedErrorIsOne(t *testing.T) {
	if got := exitCode(errors.New("boom")); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

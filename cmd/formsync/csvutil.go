package main

import (
	"encoding/csv"
	"fmt"

	"github.com/iota-uz/formsync/modules/catalog/services"
)

var problemsHeader = []string{"category", "item", "detail"}

// writeProblemsCSV writes the sampled report issues to path.
func writeProblemsCSV(path string, issues []services.Issue) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(problemsHeader); err != nil {
		return withCode(exitDB, fmt.Errorf("write %s: %w", path, err))
	}
	for _, issue := range issues {
		if err := w.Write([]string{string(issue.Category), issue.Item, issue.Detail}); err != nil {
			return withCode(exitDB, fmt.Errorf("write %s: %w", path, err))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return withCode(exitDB, fmt.Errorf("write %s: %w", path, err))
	}
	return f.Close()
}

func writeRenameCSV(path string, plans []services.RenamePlan) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := services.WriteRenameReport(f, plans); err != nil {
		return withCode(exitDB, fmt.Errorf("write %s: %w", path, err))
	}
	return f.Close()
}

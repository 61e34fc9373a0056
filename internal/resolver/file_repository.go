package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileRepository serves rules from a JSON file holding an array of match spec
// documents. List order is rule order, so entries later in the file override
// earlier ones on conflicting properties.
type FileRepository struct {
	path string
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (r *FileRepository) GetActiveRules(_ context.Context) ([]StoredRule, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", r.path, err)
	}

	var specs []json.RawMessage
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("rule file %s is not a JSON array: %w", r.path, err)
	}

	stored := make([]StoredRule, 0, len(specs))
	for i, spec := range specs {
		stored = append(stored, StoredRule{
			ID:       fmt.Sprintf("file:%d", i),
			Name:     fmt.Sprintf("file rule %d", i),
			Spec:     spec,
			Priority: i,
			Enabled:  true,
		})
	}

	return stored, nil
}

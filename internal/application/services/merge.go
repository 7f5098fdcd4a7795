package services

import (
	"encoding/json"
	"fmt"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

// Merge strategies for combining two context maps.
const (
	MergeAppend  = "append"
	MergeReplace = "replace"
	MergeKeep    = "keep"
	MergeSmart   = "smart"
)

// MergeContexts combines source into target under the given strategy and
// returns a new map; neither input is mutated. The empty strategy means
// smart: maps merge recursively, arrays append with deduplication, scalars
// take the source value.
func MergeContexts(target, source *models.ContextMap, strategy string) (*models.ContextMap, error) {
	if strategy == "" {
		strategy = MergeSmart
	}
	switch strategy {
	case MergeAppend, MergeReplace, MergeKeep, MergeSmart:
	default:
		return nil, domain.NewDomainError(domain.ErrUnknownStrategy, strategy)
	}
	if target == nil && source == nil {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "nothing to merge")
	}
	if target == nil {
		return source.Clone(), nil
	}
	if source == nil {
		return target.Clone(), nil
	}

	targetDoc, err := contextToDoc(target)
	if err != nil {
		return nil, err
	}
	sourceDoc, err := contextToDoc(source)
	if err != nil {
		return nil, err
	}

	merged := mergeMaps(targetDoc, sourceDoc, strategy)
	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encoding merged context: %w", err)
	}
	var out models.ContextMap
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding merged context: %w", err)
	}
	return &out, nil
}

func contextToDoc(cm *models.ContextMap) (map[string]any, error) {
	raw, err := json.Marshal(cm)
	if err != nil {
		return nil, fmt.Errorf("encoding context for merge: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding context for merge: %w", err)
	}
	return doc, nil
}

func mergeMaps(target, source map[string]any, strategy string) map[string]any {
	merged := make(map[string]any, len(target)+len(source))
	for k, v := range target {
		merged[k] = v
	}
	for k, sv := range source {
		tv, exists := merged[k]
		if !exists {
			merged[k] = sv
			continue
		}
		merged[k] = mergeValues(tv, sv, strategy)
	}
	return merged
}

func mergeValues(target, source any, strategy string) any {
	tm, tIsMap := target.(map[string]any)
	sm, sIsMap := source.(map[string]any)
	if tIsMap && sIsMap {
		return mergeMaps(tm, sm, strategy)
	}

	ta, tIsArr := target.([]any)
	sa, sIsArr := source.([]any)
	if tIsArr && sIsArr {
		switch strategy {
		case MergeReplace:
			return sa
		case MergeKeep:
			return ta
		case MergeAppend:
			return append(append([]any{}, ta...), sa...)
		default: // smart: append without duplicates
			return dedupeAppend(ta, sa)
		}
	}

	switch strategy {
	case MergeKeep, MergeAppend:
		return target
	default: // replace and smart prefer the newer value
		return source
	}
}

// dedupeAppend appends source elements whose canonical JSON encoding is not
// already present in target. Map keys marshal in sorted order, so encoding
// is a stable identity.
func dedupeAppend(target, source []any) []any {
	seen := make(map[string]bool, len(target))
	merged := make([]any, 0, len(target)+len(source))
	for _, v := range target {
		if enc, err := json.Marshal(v); err == nil {
			seen[string(enc)] = true
		}
		merged = append(merged, v)
	}
	for _, v := range source {
		enc, err := json.Marshal(v)
		if err == nil && seen[string(enc)] {
			continue
		}
		if err == nil {
			seen[string(enc)] = true
		}
		merged = append(merged, v)
	}
	return merged
}

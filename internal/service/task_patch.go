package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

var immutableTaskFields = map[string]struct{}{
	"id":         {},
	"_id":        {},
	"created_by": {},
	"created_at": {},
	"updated_at": {},
}

// buildTaskPatch translates a JSON merge patch (RFC 7386) into a TaskPatch.
// Known columns are typed and may not be null; any other key lands in
// attributes, where null removes the key and objects merge recursively with
// the current value.
func buildTaskPatch(raw map[string]any, current map[string]any) (repository.TaskPatch, error) {
	var patch repository.TaskPatch

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		if _, ok := immutableTaskFields[key]; ok {
			return patch, apperrors.NewValidationError("field is immutable", map[string]any{"field": key})
		}

		switch key {
		case "title", "description", "assigned_to", "priority", "status", "deadline":
			if value == nil {
				return patch, apperrors.NewValidationError("field cannot be null", map[string]any{"field": key})
			}
			str, ok := value.(string)
			if !ok {
				return patch, apperrors.NewValidationError("field must be a string", map[string]any{"field": key})
			}
			if err := applyKnownField(&patch, key, str); err != nil {
				return patch, err
			}
		default:
			if value == nil {
				patch.RemoveAttributes = append(patch.RemoveAttributes, key)
				continue
			}
			if patch.SetAttributes == nil {
				patch.SetAttributes = map[string]any{}
			}
			patch.SetAttributes[key] = mergePatch(current[key], value)
		}
	}
	return patch, nil
}

func applyKnownField(patch *repository.TaskPatch, key, value string) error {
	switch key {
	case "title":
		if strings.TrimSpace(value) == "" {
			return apperrors.NewValidationError("title cannot be empty", map[string]any{"field": key})
		}
		patch.Title = &value
	case "description":
		patch.Description = &value
	case "assigned_to":
		assignee := strings.TrimSpace(value)
		if assignee == "" {
			return apperrors.NewValidationError("assigned_to cannot be empty", map[string]any{"field": key})
		}
		patch.AssignedTo = &assignee
	case "priority":
		priority := domain.TaskPriority(value)
		if !priority.Valid() {
			return apperrors.NewValidationError("invalid priority", map[string]any{"priority": value})
		}
		patch.Priority = &priority
	case "status":
		status := domain.TaskStatus(value)
		if !status.Valid() {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": value})
		}
		patch.Status = &status
	case "deadline":
		deadline, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return apperrors.NewValidationError("deadline must be RFC 3339", map[string]any{"field": key})
		}
		patch.Deadline = &deadline
	}
	return nil
}

// mergePatch applies patch to target per RFC 7386.
func mergePatch(target, patch any) any {
	patchObj, ok := patch.(map[string]any)
	if !ok {
		return patch
	}
	targetObj, ok := target.(map[string]any)
	if !ok {
		targetObj = map[string]any{}
	}
	merged := make(map[string]any, len(targetObj))
	for k, v := range targetObj {
		merged[k] = v
	}
	for k, v := range patchObj {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = mergePatch(merged[k], v)
	}
	return merged
}

// patchDiff reports the previous and new values of every field the patch
// touched.
func patchDiff(before, after *domain.Task, patch repository.TaskPatch) (map[string]any, map[string]any) {
	oldValues := map[string]any{}
	newValues := map[string]any{}
	record := func(field string, from, to any) {
		oldValues[field] = from
		newValues[field] = to
	}
	if patch.Title != nil {
		record("title", before.Title, after.Title)
	}
	if patch.Description != nil {
		record("description", before.Description, after.Description)
	}
	if patch.AssignedTo != nil {
		record("assigned_to", before.AssignedTo, after.AssignedTo)
	}
	if patch.Priority != nil {
		record("priority", before.Priority, after.Priority)
	}
	if patch.Status != nil {
		record("status", before.Status, after.Status)
	}
	if patch.Deadline != nil {
		record("deadline", before.Deadline.UTC().Format(time.RFC3339), after.Deadline.UTC().Format(time.RFC3339))
	}
	for k := range patch.SetAttributes {
		record(attributeKey(k), before.Attributes[k], after.Attributes[k])
	}
	for _, k := range patch.RemoveAttributes {
		record(attributeKey(k), before.Attributes[k], nil)
	}
	return oldValues, newValues
}

func attributeKey(name string) string {
	return fmt.Sprintf("attributes.%s", name)
}

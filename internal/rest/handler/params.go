package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/rest/render"
	"github.com/uptrace/bunrouter"
)

// pathID parses a snowflake path parameter.
func pathID(req bunrouter.Request, name, label string) (uint64, error) {
	id, err := strconv.ParseUint(req.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, render.Errorf(http.StatusBadRequest, "Invalid "+label)
	}
	return id, nil
}

// queryID parses a snowflake query parameter. Missing values return 0 unless required.
func queryID(req bunrouter.Request, name string, required bool) (uint64, error) {
	raw := strings.TrimSpace(req.URL.Query().Get(name))
	if raw == "" {
		if required {
			return 0, render.Errorf(http.StatusBadRequest, name+" is required")
		}
		return 0, nil
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, render.Errorf(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// queryInt parses an integer query parameter within [minValue, maxValue].
func queryInt(req bunrouter.Request, name string, def, minValue, maxValue int) (int, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < minValue || v > maxValue {
		return 0, render.Errorf(http.StatusBadRequest,
			name+" must be between "+strconv.Itoa(minValue)+" and "+strconv.Itoa(maxValue))
	}
	return v, nil
}

// queryBool parses a boolean query parameter.
func queryBool(req bunrouter.Request, name string, def bool) (bool, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, render.Errorf(http.StatusBadRequest, "Invalid "+name)
	}
	return v, nil
}

// parseIDList parses a comma-separated list of snowflakes, skipping blanks.
func parseIDList(raw string) ([]uint64, error) {
	var ids []uint64
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, render.Errorf(http.StatusBadRequest, "Invalid user_ids")
		}
		ids = append(ids, id)
	}

	if len(ids) > types.MaxBulkUsers {
		return nil, render.Errorf(http.StatusBadRequest, "Too many user IDs (max 1000)")
	}

	return ids, nil
}

package dataset

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultDBName is the file the simulator writes into every run folder.
const DefaultDBName = "oran-repository.db"

// EnumerateRuns walks root and returns the parameters of every run that
// contains a database called dbName, sorted by path.
func EnumerateRuns(root, dbName string) ([]RunParams, error) {
	if dbName == "" {
		dbName = DefaultDBName
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == dbName {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("EnumerateRuns: walk %q: %w", root, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("EnumerateRuns: %q under %q: %w", dbName, root, ErrNoRuns)
	}
	sort.Strings(paths)

	runs := make([]RunParams, 0, len(paths))
	for _, p := range paths {
		rp, err := ParseRunParams(p)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rp)
	}
	return runs, nil
}

// ParseRunParams extracts key=value segments from path. All-digit values are
// parsed as integers; scenario, start-config and run-id must be present as
// integers.
func ParseRunParams(path string) (RunParams, error) {
	rp := RunParams{
		Path:  path,
		Ints:  make(map[string]int),
		Extra: make(map[string]string),
	}

	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		key, value, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		if isNumeric(value) {
			n, err := strconv.Atoi(value)
			if err != nil {
				return RunParams{}, fmt.Errorf("ParseRunParams: %q: %s=%s: %w", path, key, value, err)
			}
			rp.Ints[key] = n
			continue
		}
		rp.Extra[key] = value
	}

	for _, req := range []struct {
		key string
		dst *int
	}{
		{ParamScenario, &rp.Scenario},
		{ParamStartConfig, &rp.StartConfig},
		{ParamRunID, &rp.RunID},
	} {
		v, ok := rp.Ints[req.key]
		if !ok {
			return RunParams{}, fmt.Errorf("ParseRunParams: %q: missing integer %q: %w", path, req.key, ErrMalformedPath)
		}
		*req.dst = v
		delete(rp.Ints, req.key)
	}
	return rp, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

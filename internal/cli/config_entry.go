package docqa

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/mwiater/docqa/internal/appconfig"
)

func runShowConfig(out io.Writer) {
	var fallback appconfig.Config
	fallback.ApplyDefaults()
	appconfig.ShowConfig(out, viper.ConfigFileUsed(), GetConfig(), fallback)
}

// runSetConfig applies assignments to the file at path only. Environment and
// flag overrides are not written back.
func runSetConfig(out io.Writer, path string, assignments []string) error {
	patch, err := parseAssignments(assignments)
	if err != nil {
		return err
	}
	cfg, err := appconfig.Load(path)
	if err != nil {
		return err
	}
	store := appconfig.NewStore(cfg.ConfigPath, cfg)
	if _, err := store.Update(patch); err != nil {
		return err
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(out, "Updated %s: %s\n", store.Path(), strings.Join(keys, ", "))
	return nil
}

// parseAssignments turns key=value pairs into a config patch.
func parseAssignments(args []string) (map[string]any, error) {
	patch := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		patch[key] = value
	}
	return patch, nil
}

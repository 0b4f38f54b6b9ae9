package appconfig

import (
	"fmt"
	"io"
	"strings"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg *Config, fallback Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	fmt.Fprintln(out, "Current configuration:")
	if cfg == nil {
		cfg = &fallback
	}

	fmt.Fprintf(out, "  Debug:             %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Metrics:           %v\n", cfg.Metrics)
	fmt.Fprintf(out, "  Request Timeout:   %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Log File:          %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Hosts:             %d\n", len(cfg.Hosts))
	for _, h := range cfg.Hosts {
		hostType := h.Type
		if hostType == "" {
			hostType = "ollama"
		}
		fmt.Fprintf(out, "    - %s (%s) %s [%s]\n", h.Name, hostType, h.URL, strings.Join(h.Models, ", "))
	}
	fmt.Fprintf(out, "  Generation Host:   %s\n", cfg.GenerationHost)
	fmt.Fprintf(out, "  Generation Model:  %s\n", cfg.GenerationModel)
	fmt.Fprintf(out, "  Context Window:    %d\n", cfg.NumCtx)
	if cfg.Seed != nil {
		fmt.Fprintf(out, "  Seed:              %d\n", *cfg.Seed)
	}
	fmt.Fprintf(out, "  Embedding Host:    %s\n", cfg.EmbeddingHost)
	fmt.Fprintf(out, "  Embedding Model:   %s\n", cfg.EmbeddingModel)
	fmt.Fprintf(out, "  Index Path:        %s\n", cfg.IndexPath)
	fmt.Fprintf(out, "  Chunk Size:        %d\n", cfg.ChunkSize)
	fmt.Fprintf(out, "  Chunk Overlap:     %d\n", cfg.ChunkOverlap)
	fmt.Fprintf(out, "  Top K:             %d\n", cfg.TopK)
	fmt.Fprintf(out, "  Listen Address:    %s\n", cfg.ListenAddr)
	fmt.Fprintf(out, "  CORS Origins:      %s\n", cfg.CORSOrigins)
	fmt.Fprintf(out, "  Upload Limit:      %d MB\n", cfg.UploadLimitMB)
}

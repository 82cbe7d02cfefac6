package sanitize

import (
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/workmate-core-poc/server/internal/agent/model"
)

// MetadataCacheKey is the metadata slot holding raw tool outputs retained for
// the turn. The sanitizer caps its growth.
const MetadataCacheKey = "tool_results_cache"

// metadataWhitelist lists the fields retained when metadata exceeds the size
// threshold: the plan, file context and a minimal request echo.
var metadataWhitelist = []string{"plan", "file_context", "request", MetadataCacheKey}

// Report summarizes what a sanitizer pass found or changed.
type Report struct {
	DuplicatesRemoved int
	IssuesDetected    []string
}

// Sanitizer bounds duplicate user-turn growth and metadata/tool-result bloat.
// It never removes assistant or tool messages, so the call/response pairing
// invariant is preserved by construction. All passes are idempotent.
type Sanitizer struct {
	cfg model.SanitizerConfig
	log zerolog.Logger
}

func New(cfg model.SanitizerConfig, log zerolog.Logger) *Sanitizer {
	if cfg.MetadataMaxBytes <= 0 {
		cfg.MetadataMaxBytes = 16 * 1024
	}
	if cfg.ToolResultCacheMax <= 0 {
		cfg.ToolResultCacheMax = 20
	}
	return &Sanitizer{cfg: cfg, log: log.With().Str("component", "sanitizer").Logger()}
}

// Analyze inspects the state without mutating it. It reports duplicated user
// messages (counting every occurrence after the last one, the occurrence it
// would recommend keeping) and any bloat issues.
func (s *Sanitizer) Analyze(st *model.ConversationState) Report {
	var rep Report
	if st == nil || len(st.Messages) == 0 {
		return rep
	}

	counts := make(map[string]int)
	for _, m := range st.Messages {
		if m == nil || m.Role != schema.User {
			continue
		}
		counts[m.Content]++
	}
	for content, n := range counts {
		if n > 1 {
			rep.DuplicatesRemoved += n - 1
			rep.IssuesDetected = append(rep.IssuesDetected,
				fmt.Sprintf("duplicate user message x%d: %s", n, snippet(content)))
		}
	}

	if size := metadataSize(st.Metadata); size > s.cfg.MetadataMaxBytes {
		rep.IssuesDetected = append(rep.IssuesDetected,
			fmt.Sprintf("metadata oversized: %d bytes", size))
	}
	if n := cachedResultCount(st.Metadata); n > s.cfg.ToolResultCacheMax {
		rep.IssuesDetected = append(rep.IssuesDetected,
			fmt.Sprintf("tool result cache oversized: %d entries", n))
	}
	return rep
}

// Clean mutates the state: duplicated user messages collapse to their FIRST
// occurrence (the policy actually applied before execution continues),
// oversized metadata is reduced to the whitelist, and the tool-result cache
// is evicted oldest-first down to the cap. Absence of messages is a no-op.
func (s *Sanitizer) Clean(st *model.ConversationState) Report {
	var rep Report
	if st == nil {
		return rep
	}

	if len(st.Messages) > 0 {
		seen := make(map[string]bool)
		kept := st.Messages[:0]
		for _, m := range st.Messages {
			if m != nil && m.Role == schema.User {
				if seen[m.Content] {
					rep.DuplicatesRemoved++
					continue
				}
				seen[m.Content] = true
			}
			kept = append(kept, m)
		}
		st.Messages = kept
	}

	if size := metadataSize(st.Metadata); size > s.cfg.MetadataMaxBytes {
		trimmed := make(map[string]any, len(metadataWhitelist))
		for _, k := range metadataWhitelist {
			if v, ok := st.Metadata[k]; ok {
				trimmed[k] = v
			}
		}
		dropped := len(st.Metadata) - len(trimmed)
		st.Metadata = trimmed
		rep.IssuesDetected = append(rep.IssuesDetected,
			fmt.Sprintf("metadata truncated: dropped %d fields", dropped))
	}

	if n := cachedResultCount(st.Metadata); n > s.cfg.ToolResultCacheMax {
		cache, _ := st.Metadata[MetadataCacheKey].([]any)
		st.Metadata[MetadataCacheKey] = cache[n-s.cfg.ToolResultCacheMax:]
		rep.IssuesDetected = append(rep.IssuesDetected,
			fmt.Sprintf("tool result cache evicted: %d oldest entries", n-s.cfg.ToolResultCacheMax))
	}

	if rep.DuplicatesRemoved > 0 || len(rep.IssuesDetected) > 0 {
		s.log.Debug().
			Int("duplicates_removed", rep.DuplicatesRemoved).
			Strs("issues", rep.IssuesDetected).
			Msg("state cleaned")
	}
	return rep
}

func metadataSize(meta map[string]any) int {
	if len(meta) == 0 {
		return 0
	}
	b, err := json.Marshal(meta)
	if err != nil {
		// unserializable metadata counts as oversized so it gets trimmed
		return int(^uint(0) >> 1)
	}
	return len(b)
}

func cachedResultCount(meta map[string]any) int {
	if meta == nil {
		return 0
	}
	cache, _ := meta[MetadataCacheKey].([]any)
	return len(cache)
}

func snippet(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max]
}

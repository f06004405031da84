package message

import (
	"context"
	"fmt"
)

// rewriteForCompaction implements the three compaction strategies over an
// already-loaded message slice. Shared by InMemoryStore and MongoStore so
// the rewrite semantics (§4.B) live in exactly one place.
func rewriteForCompaction(ctx context.Context, summarizer Summarizer, all []Message, opts CompactOptions) ([]Message, CompactResult, error) {
	if opts.KeepRecent < 0 {
		opts.KeepRecent = 0
	}
	keep := opts.KeepRecent
	if keep > len(all) {
		keep = len(all)
	}
	droppedPrefix := all[:len(all)-keep]
	kept := all[len(all)-keep:]
	tokensBefore := sumTokens(droppedPrefix)

	summarize := func(messages []Message) (string, error) {
		if len(messages) == 0 {
			return "", nil
		}
		if summarizer != nil {
			return summarizer.Summarize(ctx, opts.SummaryPrompt, messages)
		}
		return ruleBasedDigest(messages), nil
	}

	var rewritten []Message
	switch opts.Strategy {
	case StrategySlidingWindow:
		rewritten = kept

	case StrategySummarization:
		summary, err := summarize(droppedPrefix)
		if err != nil {
			return nil, CompactResult{}, fmt.Errorf("message: summarize: %w", err)
		}
		if summary != "" {
			rewritten = append([]Message{{Role: RoleSystem, Content: summary}}, kept...)
		} else {
			rewritten = kept
		}

	case StrategyHierarchical:
		const windowSize = 10
		var summaries []Message
		for i := 0; i < len(droppedPrefix); i += windowSize {
			end := i + windowSize
			if end > len(droppedPrefix) {
				end = len(droppedPrefix)
			}
			summary, err := summarize(droppedPrefix[i:end])
			if err != nil {
				return nil, CompactResult{}, fmt.Errorf("message: summarize chunk: %w", err)
			}
			if summary != "" {
				summaries = append(summaries, Message{Role: RoleSystem, Content: summary})
			}
		}
		rewritten = append(summaries, kept...)

	default:
		return nil, CompactResult{}, fmt.Errorf("message: unknown compaction strategy %q", opts.Strategy)
	}

	for i := range rewritten {
		rewritten[i].Index = i
	}

	tokensAfterPrefix := sumTokens(rewritten) - sumTokens(kept)
	tokensSaved := tokensBefore - tokensAfterPrefix
	if tokensSaved < 0 {
		tokensSaved = 0
	}
	return rewritten, CompactResult{TokensSaved: tokensSaved, MessageCount: len(rewritten)}, nil
}

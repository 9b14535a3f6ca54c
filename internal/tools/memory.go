package tools

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/boxcoder/boxcoder/internal/memory"
	"github.com/boxcoder/boxcoder/internal/sandbox"
)

// SearchMemoryTool looks up past exchanges relevant to a query.
type SearchMemoryTool struct {
	store *memory.Store
}

// NewSearchMemoryTool creates the search_memory tool.
func NewSearchMemoryTool(store *memory.Store) *SearchMemoryTool {
	return &SearchMemoryTool{store: store}
}

func (t *SearchMemoryTool) Kind() Kind { return KindSearchMemory }

func (t *SearchMemoryTool) Description() string {
	return "Searches previous questions and answers. Use it when the user refers to an earlier question or fix."
}

func (t *SearchMemoryTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"query": stringProp("What to look for."),
		"top_k": intProp("Maximum number of results. Defaults to 5."),
	}, "query")
}

type searchMemoryArgs struct {
	Query *string `json:"query"`
	TopK  *int    `json:"top_k"`
}

func (a *searchMemoryArgs) validate() error {
	if a.Query == nil {
		return missingArg("query")
	}
	return nil
}

func (t *SearchMemoryTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	args, err := decodeArgs[searchMemoryArgs](params)
	if err != nil {
		return "", err
	}
	topK := memory.DefaultTopK
	if args.TopK != nil {
		topK = *args.TopK
	}

	payload := struct {
		Results []memory.Record `json:"results"`
	}{Results: t.store.Query(*args.Query, topK)}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", sandbox.Wrap(sandbox.KindInternal, "", err, "encode memory results")
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
